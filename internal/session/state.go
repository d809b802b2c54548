package session

// State is the readiness controller's lifecycle state.
type State string

const (
	StateIdle      State = "idle"      // no pipeline, nothing playing
	StateStarting  State = "starting"  // start request in flight
	StateWaiting   State = "waiting"   // polling the playlist for segments
	StateReady     State = "ready"     // playlist playable, handing off
	StatePlaying   State = "playing"   // playback attached
	StateTimedOut  State = "timed_out" // readiness budget elapsed
	StateCancelled State = "cancelled" // superseded by a newer operation
	StateError     State = "error"     // request or playback failure
)

// Outcome is the terminal result of a Start or Reload call. Cancellation
// and timeout are distinct from errors so the caller never reports a
// spurious failure when the user simply started a new action.
type Outcome string

const (
	OutcomePlaying   Outcome = "playing"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
)

// Snapshot is the console-facing view of the controller.
type Snapshot struct {
	State         State  `json:"state"`
	Detail        string `json:"detail,omitempty"`
	HLSURL        string `json:"hls_url,omitempty"`
	SegmentsFound int    `json:"segments_found"`
	SegmentsNeed  int    `json:"segments_need"`
	Engine        string `json:"engine,omitempty"`
}
