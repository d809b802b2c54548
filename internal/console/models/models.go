// Package models holds the console API request and response shapes.
package models

import (
	"github.com/dkozyrev/veloview/internal/backend"
	"github.com/dkozyrev/veloview/internal/logging"
)

// Health models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Version string `json:"version" example:"1.2.0" doc:"Console version"`
}

type HealthResponse struct {
	Body HealthData
}

// Session models
type SessionData struct {
	State          string  `json:"state" example:"playing" doc:"Readiness controller state"`
	Detail         string  `json:"detail,omitempty" example:"2/2 segments" doc:"Human-readable state detail"`
	HLSURL         string  `json:"hls_url,omitempty" doc:"Playlist URL of the live stream"`
	SegmentsFound  int     `json:"segments_found" doc:"Segments seen on the last playlist poll"`
	SegmentsNeed   int     `json:"segments_need" doc:"Segments required before handoff"`
	Engine         string  `json:"engine,omitempty" example:"hls" doc:"Playback engine in use"`
	Position       float64 `json:"position" doc:"Playback position in seconds"`
	OverlayVisible bool    `json:"overlay_visible" doc:"Whether detection overlays are drawn"`
}

type SessionResponse struct {
	Body SessionData
}

type StartRequestData struct {
	InputURL string `json:"input_url" example:"rtsp://camera.local/stream" doc:"Source stream to transcode"`
}

type StartRequest struct {
	Body StartRequestData
}

// OutcomeData reports how a start or reload resolved. Cancelled and timed
// out are outcomes, not errors.
type OutcomeData struct {
	Outcome string      `json:"outcome" example:"playing" doc:"Terminal outcome: playing, timed_out, cancelled or error"`
	Session SessionData `json:"session" doc:"Controller state after the operation"`
}

type OutcomeResponse struct {
	Body OutcomeData
}

type OverlayVisibleRequest struct {
	Body struct {
		Visible bool `json:"visible" doc:"Draw detection overlays"`
	}
}

// ROI models
type PointerEventData struct {
	Kind string  `json:"kind" enum:"down,move,up" doc:"Pointer event kind"`
	X    float64 `json:"x" doc:"Display-space X coordinate"`
	Y    float64 `json:"y" doc:"Display-space Y coordinate"`
}

type PointerEventRequest struct {
	Body PointerEventData
}

type ROIModeRequest struct {
	Body struct {
		Edit bool `json:"edit" doc:"Enter or leave polygon edit mode"`
	}
}

type ROIEnabledRequest struct {
	Body struct {
		Enabled bool `json:"enabled" doc:"Attach the polygon to counting submissions"`
	}
}

type ROIPoint struct {
	X float64 `json:"x" doc:"Native-space X coordinate"`
	Y float64 `json:"y" doc:"Native-space Y coordinate"`
}

type ROIData struct {
	Points     []ROIPoint   `json:"points" doc:"Polygon points in native image coordinates"`
	EditMode   bool         `json:"edit_mode" doc:"Whether the editor is in edit mode"`
	Enabled    bool         `json:"enabled" doc:"Whether the polygon is attached to submissions"`
	Normalized [][2]float64 `json:"normalized,omitempty" doc:"Exported polygon in [0,1] coordinates, present only when valid and enabled"`
}

type ROIResponse struct {
	Body ROIData
}

// Timeline models
type TimelineLoadRequest struct {
	Body struct {
		NativeWidth  float64                 `json:"native_width,omitempty" doc:"Native media width the box coordinates are expressed in"`
		NativeHeight float64                 `json:"native_height,omitempty" doc:"Native media height the box coordinates are expressed in"`
		Entries      []backend.TimelineEntry `json:"entries" doc:"Detection entries sorted by t ascending"`
	}
}

type TimelineData struct {
	Frames   int     `json:"frames" doc:"Number of timeline entries loaded"`
	AvgCount float64 `json:"avg_count" doc:"Average count across entries"`
	MaxCount int     `json:"max_count" doc:"Maximum count across entries"`
}

type TimelineResponse struct {
	Body TimelineData
}

// Log models
type LogsData struct {
	Entries []logging.Entry `json:"entries" doc:"Most recent log entries, oldest first"`
	Count   int             `json:"count" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
