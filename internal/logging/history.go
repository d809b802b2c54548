package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is a single log line retained for the console's log area.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Module    string         `json:"module"`
	Message   string         `json:"message"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// History is a fixed-size circular buffer of log entries.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
}

func NewHistory(size int) *History {
	return &History{entries: make([]Entry, size)}
}

// Append stores an entry, overwriting the oldest once full.
func (h *History) Append(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.head] = e
	h.head = (h.head + 1) % len(h.entries)
	if h.count < len(h.entries) {
		h.count++
	}
}

// Tail returns up to n most recent entries in chronological order.
// n <= 0 returns everything retained.
func (h *History) Tail(n int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > h.count {
		n = h.count
	}
	out := make([]Entry, 0, n)
	start := h.head - n
	if start < 0 {
		start += len(h.entries)
	}
	for i := range n {
		out = append(out, h.entries[(start+i)%len(h.entries)])
	}
	return out
}

func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// HistoryHandler is a slog.Handler that captures records into a History.
type HistoryHandler struct {
	history *History
	level   slog.Leveler
	attrs   []slog.Attr
}

func NewHistoryHandler(history *History, level slog.Leveler) *HistoryHandler {
	return &HistoryHandler{history: history, level: level}
}

func (h *HistoryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *HistoryHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	module := "app"

	collect := func(a slog.Attr) {
		if a.Key == "module" {
			module = a.Value.String()
			return
		}
		attrs[a.Key] = a.Value.Any()
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}

	h.history.Append(Entry{
		Timestamp: r.Time,
		Level:     levelToString(r.Level),
		Module:    module,
		Message:   r.Message,
		Attrs:     attrs,
	})
	return nil
}

func (h *HistoryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &HistoryHandler{history: h.history, level: h.level, attrs: merged}
}

func (h *HistoryHandler) WithGroup(string) slog.Handler { return h }
