package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// VideoOptions tune a video counting submission.
type VideoOptions struct {
	InferFPS     float64 // 0 means backend default
	IncludeBoxes bool
}

// PhotoOptions carry the optional ROI constraint of a photo submission.
// ROI points are normalized [0,1] pairs; fewer than three points means no
// ROI parameter is sent at all.
type PhotoOptions struct {
	ROIEnabled bool
	ROI        [][2]float64
}

// CountVideo uploads a video file and returns its detection timeline.
func (c *Client) CountVideo(ctx context.Context, path string, opts VideoOptions) (*VideoCountResult, error) {
	q := url.Values{}
	q.Set("include_boxes", strconv.FormatBool(opts.IncludeBoxes))
	if opts.InferFPS > 0 {
		q.Set("infer_fps", strconv.FormatFloat(opts.InferFPS, 'f', -1, 64))
	}
	endpoint := c.baseURL + "/api/count/video?" + q.Encode()

	var result VideoCountResult
	err := c.uploadFile(ctx, endpoint, path, "video/mp4", nil, &result)
	if err != nil {
		return nil, err
	}
	c.logger.Info("video counted",
		"frames", result.FramesProcessed, "avg", result.AvgCount, "max", result.MaxCount)
	return &result, nil
}

// CountPhoto uploads an image file, with the ROI polygon attached only when
// enabled and valid (at least three points).
func (c *Client) CountPhoto(ctx context.Context, path string, opts PhotoOptions) (*PhotoCountResult, error) {
	fields := map[string]string{}
	if opts.ROIEnabled && len(opts.ROI) >= 3 {
		roiJSON, err := json.Marshal(opts.ROI)
		if err != nil {
			return nil, fmt.Errorf("marshal roi: %w", err)
		}
		fields["roi_enabled"] = "true"
		fields["roi"] = string(roiJSON)
		fields["roi_format"] = "norm"
	}

	var result PhotoCountResult
	err := c.uploadFile(ctx, c.baseURL+"/api/count/photo", path, "image/jpeg", fields, &result)
	if err != nil {
		return nil, err
	}
	c.logger.Info("photo counted", "count", result.Count, "boxes", len(result.Boxes))
	return &result, nil
}

// uploadFile streams a multipart submission through an io.Pipe so large
// videos never buffer fully in memory.
func (c *Client) uploadFile(ctx context.Context, endpoint, path, fallbackType string, fields map[string]string, out any) error {
	err := c.doUpload(ctx, endpoint, path, fallbackType, fields, out)
	label := endpoint
	if u, perr := url.Parse(endpoint); perr == nil {
		label = u.Path
	}
	c.observeResult(label, err)
	return err
}

func (c *Client) doUpload(ctx context.Context, endpoint, path, fallbackType string, fields map[string]string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = fallbackType
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		var werr error
		defer func() { pw.CloseWithError(werr) }()

		for key, value := range fields {
			if werr = mw.WriteField(key, value); werr != nil {
				return
			}
		}

		part, err := createFilePart(mw, filepath.Base(path), contentType)
		if err != nil {
			werr = err
			return
		}
		if _, werr = io.Copy(part, f); werr != nil {
			return
		}
		werr = mw.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode count response: %w", err)
	}
	return nil
}

// createFilePart writes a form file header carrying the real content type
// instead of multipart's default application/octet-stream.
func createFilePart(mw *multipart.Writer, filename, contentType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	return mw.CreatePart(h)
}
