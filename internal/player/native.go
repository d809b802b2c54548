package player

import "fmt"

// Native models platform-native media support. It is consulted first in the
// engine priority order; on a headless console no types are supported
// unless a platform integration registers them, so selection normally falls
// through to the HLS follower.
type Native struct {
	supported map[string]bool
	open      func(url string, cb Callbacks) (Playback, error)
}

// NewNative creates a native engine claiming the given media types. The
// open function performs the actual platform attach; it must be non-nil
// when any type is claimed.
func NewNative(supported []string, open func(url string, cb Callbacks) (Playback, error)) *Native {
	set := make(map[string]bool, len(supported))
	for _, s := range supported {
		set[s] = true
	}
	return &Native{supported: set, open: open}
}

func (n *Native) Name() string { return "native" }

func (n *Native) CanPlay(mimeType string) bool {
	return n.supported[mimeType]
}

func (n *Native) Open(url string, cb Callbacks) (Playback, error) {
	if n.open == nil {
		return nil, fmt.Errorf("native engine has no platform attach")
	}
	return n.open(url, cb)
}
