// Package player defines the playback engine boundary. The readiness
// controller hands a playlist URL to the first engine that claims support
// for the stream's media type; everything behind the Engine interface is an
// external collaborator as far as the controller is concerned.
package player

import "context"

// HLS media types an adaptive engine is expected to claim.
const (
	MimeHLS    = "application/vnd.apple.mpegurl"
	MimeHLSAlt = "application/x-mpegURL"
)

// Callbacks receive playback notifications. All fields are optional.
type Callbacks struct {
	// OnTime is invoked with the playback position on a fixed cadence.
	OnTime func(t float64)
	// OnError receives playback errors. Fatal ones are *FatalError; the
	// controller classifies those for recovery. Anything else is advisory.
	OnError func(err error)
	// OnEnded fires once when a closed stream plays out.
	OnEnded func()
}

// Engine creates playback sessions for media types it supports.
type Engine interface {
	Name() string
	CanPlay(mimeType string) bool
	Open(url string, cb Callbacks) (Playback, error)
}

// Playback is a live playback session.
type Playback interface {
	// Position returns the current playback position in seconds.
	Position() float64
	// ReloadSource reattaches the source after a network-class fatal error.
	ReloadSource() error
	// RecoverMedia attempts decoder-level recovery after a media-class
	// fatal error.
	RecoverMedia() error
	Close() error
}

// FrameNotifier is implemented by playbacks that can deliver a
// frame-accurate callback. The overlay render loop prefers it over its
// fixed-rate fallback ticker.
type FrameNotifier interface {
	// SetFrameCallback registers fn to run once per presented frame with
	// the frame's playback time. Passing nil unregisters.
	SetFrameCallback(fn func(t float64))
}

// FetchFunc retrieves a playlist resource. The backend client's
// cache-bypassing FetchPlaylist satisfies it.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Select returns the first engine claiming support for mimeType, in the
// given priority order, or nil when none does.
func Select(engines []Engine, mimeType string) Engine {
	for _, e := range engines {
		if e.CanPlay(mimeType) {
			return e
		}
	}
	return nil
}
