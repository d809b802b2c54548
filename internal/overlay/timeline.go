// Package overlay keeps detection results aligned with live playback: an
// ordered detection timeline, nearest-entry lookup by playback time and a
// renderer that redraws bounding boxes only when the resolved entry changes.
package overlay

import (
	"sort"
	"sync"

	"github.com/dkozyrev/veloview/internal/backend"
)

// None is the Nearest result on an empty timeline.
const None = -1

// Timeline holds a detection sequence ordered by T ascending. Replace swaps
// the sequence wholesale; entries are trusted to arrive pre-sorted because
// the backend emits them in sample order and nothing here re-sorts.
type Timeline struct {
	mu      sync.RWMutex
	entries []backend.TimelineEntry
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// Replace swaps the held sequence for entries.
func (tl *Timeline) Replace(entries []backend.TimelineEntry) {
	tl.mu.Lock()
	tl.entries = entries
	tl.mu.Unlock()
}

func (tl *Timeline) Len() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.entries)
}

// At returns the entry at index i, or false when i is out of range.
func (tl *Timeline) At(i int) (backend.TimelineEntry, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	if i < 0 || i >= len(tl.entries) {
		return backend.TimelineEntry{}, false
	}
	return tl.entries[i], true
}

// Nearest returns the index of the entry whose T is closest to t, with ties
// resolved toward the earlier index. Returns None on an empty timeline.
func (tl *Timeline) Nearest(t float64) int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	n := len(tl.entries)
	if n == 0 {
		return None
	}

	i := sort.Search(n, func(i int) bool { return tl.entries[i].T >= t })
	if i == 0 {
		return 0
	}
	if i == n {
		return n - 1
	}
	if t-tl.entries[i-1].T <= tl.entries[i].T-t {
		return i - 1
	}
	return i
}
