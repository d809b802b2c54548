package backend

import (
	"fmt"

	"github.com/dkozyrev/veloview/internal/geom"
)

// StreamStatus is the backend's report on the transcoding pipeline. The
// controller only depends on HLSURL and on request success; the remaining
// fields are echoed into the console surface.
type StreamStatus struct {
	Running      bool     `json:"running"`
	InputURL     *string  `json:"input_url"`
	HLSURL       string   `json:"hls_url"`
	StartedAt    *float64 `json:"started_at"`
	LastUpdateTS *float64 `json:"last_update_ts"`
	LastCount    int      `json:"last_count"`
	FramesOut    int      `json:"frames_out"`
	Error        *string  `json:"error"`
}

// TimelineEntry is one detection sample of a video submission. Entries
// arrive sorted by T ascending and are never mutated afterwards.
type TimelineEntry struct {
	T     float64    `json:"t"`
	Count int        `json:"count"`
	Boxes []geom.Box `json:"boxes"`
}

// VideoCountResult is the response of a video counting submission.
type VideoCountResult struct {
	AvgCount        float64         `json:"avg_count"`
	MaxCount        int             `json:"max_count"`
	FramesProcessed int             `json:"frames_processed"`
	InferFPS        float64         `json:"infer_fps"`
	IncludeBoxes    bool            `json:"include_boxes"`
	Timeline        []TimelineEntry `json:"timeline"`
}

// PhotoCountResult is the response of a photo counting submission.
type PhotoCountResult struct {
	Count int        `json:"count"`
	Boxes []geom.Box `json:"boxes"`
}

// APIError is a backend-reported failure: a non-success status whose detail
// message is surfaced to the user verbatim, with no retry.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (status %d)", e.Status)
}
