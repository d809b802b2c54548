// Package events carries the console's in-process event types over a
// kelindar/event dispatcher. Components publish state transitions here;
// the console API and metrics observe without coupling to the publishers.
package events

// Event type identifiers for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeReadinessProgress
	TypeStatusPolled
	TypePlaybackError
	TypeTimelineLoaded
	TypeROIChanged
)

// Event is the interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent reports a stream session state transition.
type StateChangedEvent struct {
	State     string `json:"state"`
	Detail    string `json:"detail,omitempty"`
	HLSURL    string `json:"hls_url,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// ReadinessProgressEvent reports playlist polling progress while waiting
// for the stream to become playable.
type ReadinessProgressEvent struct {
	SegmentsFound int `json:"segments_found"`
	SegmentsNeed  int `json:"segments_need"`
	Attempt       int `json:"attempt"`
}

func (e ReadinessProgressEvent) Type() uint32 { return TypeReadinessProgress }

// StatusPolledEvent carries the backend's passively polled stream status.
type StatusPolledEvent struct {
	Running   bool   `json:"running"`
	InputURL  string `json:"input_url,omitempty"`
	HLSURL    string `json:"hls_url"`
	LastCount int    `json:"last_count"`
	FramesOut int    `json:"frames_out"`
	Error     string `json:"error,omitempty"`
}

func (e StatusPolledEvent) Type() uint32 { return TypeStatusPolled }

// PlaybackErrorEvent reports a classified playback engine error.
type PlaybackErrorEvent struct {
	Class  string `json:"class"` // "network", "media", "other"
	Fatal  bool   `json:"fatal"`
	Detail string `json:"detail"`
}

func (e PlaybackErrorEvent) Type() uint32 { return TypePlaybackError }

// TimelineLoadedEvent reports a freshly loaded detection timeline.
type TimelineLoadedEvent struct {
	Frames   int     `json:"frames"`
	AvgCount float64 `json:"avg_count"`
	MaxCount int     `json:"max_count"`
}

func (e TimelineLoadedEvent) Type() uint32 { return TypeTimelineLoaded }

// ROIChangedEvent reports an ROI editor mutation.
type ROIChangedEvent struct {
	Points   int  `json:"points"`
	EditMode bool `json:"edit_mode"`
	Valid    bool `json:"valid"`
}

func (e ROIChangedEvent) Type() uint32 { return TypeROIChanged }
