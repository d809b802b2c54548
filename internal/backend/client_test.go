package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestStartStream(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stream/start" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"running": true,
			"hls_url": "/hls/stream.m3u8",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.StartStream(context.Background(), "rtsp://cam/live")
	if err != nil {
		t.Fatal(err)
	}
	if gotBody["input_url"] != "rtsp://cam/live" {
		t.Errorf("input_url = %q", gotBody["input_url"])
	}
	if status.HLSURL != "/hls/stream.m3u8" {
		t.Errorf("HLSURL = %q", status.HLSURL)
	}
}

func TestStartStreamBackendDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "ffmpeg exited immediately"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).StartStream(context.Background(), "rtsp://bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Detail != "ffmpeg exited immediately" {
		t.Errorf("unexpected APIError %+v", apiErr)
	}
}

func TestStartStreamPassesThroughMissingHLSURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"running": true})
	}))
	defer srv.Close()

	// An empty hls_url is the session controller's call to make; the
	// client only reports what the backend said.
	status, err := NewClient(srv.URL).StartStream(context.Background(), "rtsp://cam")
	if err != nil {
		t.Fatal(err)
	}
	if status.HLSURL != "" {
		t.Errorf("HLSURL = %q, want empty", status.HLSURL)
	}
}

func TestOnRequestObservesOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/stream/status":
			json.NewEncoder(w).Encode(map[string]any{"running": true, "hls_url": "/hls/stream.m3u8"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	type observation struct{ endpoint, result string }
	var seen []observation

	c := NewClient(srv.URL)
	c.OnRequest(func(endpoint, result string) {
		seen = append(seen, observation{endpoint, result})
	})

	if _, err := c.StreamStatus(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.FetchPlaylist(context.Background(), "/hls/stream.m3u8"); err == nil {
		t.Fatal("expected playlist fetch to fail")
	}

	want := []observation{
		{"/api/stream/status", "ok"},
		{"playlist", "error"},
	}
	if len(seen) != len(want) {
		t.Fatalf("observations = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("observation %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestFetchPlaylistCacheBusting(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hls/stream.m3u8" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Cache-Control") != "no-store" {
			t.Errorf("Cache-Control = %q", r.Header.Get("Cache-Control"))
		}
		queries = append(queries, r.URL.Query().Get("_"))
		w.Write([]byte("#EXTM3U\nseg1.ts\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	for range 2 {
		if _, err := c.FetchPlaylist(context.Background(), "/hls/stream.m3u8"); err != nil {
			t.Fatal(err)
		}
	}

	if len(queries) != 2 || queries[0] == "" || queries[0] == queries[1] {
		t.Errorf("cache buster not fresh per attempt: %v", queries)
	}
}

func TestFetchPlaylistNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).FetchPlaylist(context.Background(), "/hls/stream.m3u8"); err == nil {
		t.Error("expected error for 404 playlist")
	}
}

func TestCountPhotoROIFields(t *testing.T) {
	tests := []struct {
		name    string
		opts    PhotoOptions
		wantROI bool
	}{
		{"roi attached", PhotoOptions{ROIEnabled: true, ROI: [][2]float64{{0.1, 0.1}, {0.9, 0.1}, {0.5, 0.9}}}, true},
		{"below minimum", PhotoOptions{ROIEnabled: true, ROI: [][2]float64{{0.1, 0.1}, {0.9, 0.1}}}, false},
		{"disabled", PhotoOptions{ROIEnabled: false, ROI: [][2]float64{{0.1, 0.1}, {0.9, 0.1}, {0.5, 0.9}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotROI, gotFormat string
			var hadROI bool
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Fatalf("parse multipart: %v", err)
				}
				_, hadROI = r.MultipartForm.Value["roi"]
				gotROI = r.FormValue("roi")
				gotFormat = r.FormValue("roi_format")
				if _, _, err := r.FormFile("file"); err != nil {
					t.Errorf("missing file part: %v", err)
				}
				json.NewEncoder(w).Encode(PhotoCountResult{Count: 2})
			}))
			defer srv.Close()

			img := filepath.Join(t.TempDir(), "shot.jpg")
			if err := os.WriteFile(img, []byte("jpegdata"), 0o644); err != nil {
				t.Fatal(err)
			}

			result, err := NewClient(srv.URL).CountPhoto(context.Background(), img, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if result.Count != 2 {
				t.Errorf("Count = %d", result.Count)
			}
			if hadROI != tt.wantROI {
				t.Errorf("roi field present = %v, want %v", hadROI, tt.wantROI)
			}
			if tt.wantROI {
				if gotFormat != "norm" {
					t.Errorf("roi_format = %q", gotFormat)
				}
				var pts [][2]float64
				if err := json.Unmarshal([]byte(gotROI), &pts); err != nil || len(pts) != 3 {
					t.Errorf("roi payload %q: %v", gotROI, err)
				}
			}
		})
	}
}

func TestCountVideoQueryAndTimeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("include_boxes") != "true" {
			t.Errorf("include_boxes = %q", q.Get("include_boxes"))
		}
		if q.Get("infer_fps") != "2" {
			t.Errorf("infer_fps = %q", q.Get("infer_fps"))
		}
		json.NewEncoder(w).Encode(VideoCountResult{
			AvgCount:        1.5,
			MaxCount:        3,
			FramesProcessed: 2,
			InferFPS:        2,
			IncludeBoxes:    true,
			Timeline: []TimelineEntry{
				{T: 0, Count: 1},
				{T: 0.5, Count: 3},
			},
		})
	}))
	defer srv.Close()

	vid := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(vid, []byte("mp4data"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := NewClient(srv.URL).CountVideo(context.Background(), vid, VideoOptions{InferFPS: 2, IncludeBoxes: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Timeline) != 2 || result.Timeline[1].T != 0.5 {
		t.Errorf("unexpected timeline %+v", result.Timeline)
	}
}
