// Package backend is the HTTP client for the bicycle counting backend:
// stream pipeline control, playlist fetches, counting submissions and
// report downloads.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dkozyrev/veloview/internal/logging"
)

// RequestObserver receives the endpoint path and result ("ok" or "error")
// of every backend request, so the caller can feed a counter without this
// package importing the metrics registry.
type RequestObserver func(endpoint, result string)

// Client talks to the counting backend. Control requests share a single
// http.Client with a short timeout; uploads use a separate one without,
// since video submissions run for as long as inference takes.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
	logger       *slog.Logger
	observe      RequestObserver
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		uploadClient: &http.Client{},
		logger:       logging.GetLogger("backend"),
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// OnRequest registers an observer for per-request outcomes. Must be called
// before the client is shared between goroutines.
func (c *Client) OnRequest(fn RequestObserver) { c.observe = fn }

func (c *Client) observeResult(endpoint string, err error) {
	if c.observe == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.observe(endpoint, result)
}

// StartStream asks the backend to create or replace the transcoding
// pipeline for inputURL.
func (c *Client) StartStream(ctx context.Context, inputURL string) (*StreamStatus, error) {
	body, err := json.Marshal(map[string]string{"input_url": inputURL})
	if err != nil {
		return nil, fmt.Errorf("marshal start request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stream/start", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, err := c.doStatus(req)
	if err != nil {
		return nil, err
	}
	c.logger.Info("pipeline start requested", "input_url", inputURL, "hls_url", status.HLSURL)
	return status, nil
}

// StopStream asks the backend to tear the pipeline down.
func (c *Client) StopStream(ctx context.Context) (*StreamStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stream/stop", nil)
	if err != nil {
		return nil, fmt.Errorf("create stop request: %w", err)
	}
	return c.doStatus(req)
}

// StreamStatus fetches the pipeline status for passive display.
func (c *Client) StreamStatus(ctx context.Context) (*StreamStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream/status", nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	return c.doStatus(req)
}

// FetchPlaylist retrieves the HLS playlist with cache-bypassing semantics:
// a fresh cache-busting query value on every attempt plus no-store headers.
// playlistURL may be absolute or backend-relative.
func (c *Client) FetchPlaylist(ctx context.Context, playlistURL string) ([]byte, error) {
	body, err := c.fetchPlaylist(ctx, playlistURL)
	c.observeResult("playlist", err)
	return body, err
}

func (c *Client) fetchPlaylist(ctx context.Context, playlistURL string) ([]byte, error) {
	full := playlistURL
	if strings.HasPrefix(full, "/") {
		full = c.baseURL + full
	}

	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	full = fmt.Sprintf("%s%s_=%d", full, sep, time.Now().UnixNano())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("create playlist request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// Report downloads a pdf or xlsx counting report into w. start and end are
// optional UTC bounds in the backend's accepted datetime formats.
func (c *Client) Report(ctx context.Context, kind, start, end string, w io.Writer) error {
	if kind != "pdf" && kind != "xlsx" {
		return fmt.Errorf("unknown report kind %q", kind)
	}
	err := c.fetchReport(ctx, kind, start, end, w)
	c.observeResult("/api/report/"+kind, err)
	return err
}

func (c *Client) fetchReport(ctx context.Context, kind, start, end string, w io.Writer) error {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	full := c.baseURL + "/api/report/" + kind
	if len(q) > 0 {
		full += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return fmt.Errorf("create report request: %w", err)
	}

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// doStatus executes a request and decodes a StreamStatus, mapping
// non-success responses to APIError with the backend's detail message.
func (c *Client) doStatus(req *http.Request) (*StreamStatus, error) {
	status, err := c.execStatus(req)
	c.observeResult(req.URL.Path, err)
	return status, err
}

func (c *Client) execStatus(req *http.Request) (*StreamStatus, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var status StreamStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &status, nil
}

// decodeAPIError extracts the backend's {detail} message from a non-success
// response, falling back to the bare status code.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Detail = payload.Detail
	}
	return apiErr
}
