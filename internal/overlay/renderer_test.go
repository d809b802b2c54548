package overlay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkozyrev/veloview/internal/backend"
	"github.com/dkozyrev/veloview/internal/draw"
	"github.com/dkozyrev/veloview/internal/geom"
)

func newTestRenderer() (*Renderer, *draw.Recorder) {
	rec := draw.NewRecorder()
	r := NewRenderer(&RendererOptions{Canvas: rec})
	r.SetNativeSize(geom.Size{W: 100, H: 100})
	r.Resize(geom.Size{W: 100, H: 100}, 1)
	rec.Reset()
	return r, rec
}

func oneBoxTimeline(box geom.Box, ts ...float64) []backend.TimelineEntry {
	out := make([]backend.TimelineEntry, len(ts))
	for i, t := range ts {
		out[i] = backend.TimelineEntry{T: t, Count: 1, Boxes: []geom.Box{box}}
	}
	return out
}

func TestRenderAtSkipsUnchangedIndex(t *testing.T) {
	r, rec := newTestRenderer()
	box := geom.Box{X1: 10, Y1: 30, X2: 50, Y2: 70, Class: "bicycle", Conf: 0.9}
	r.Timeline().Replace(oneBoxTimeline(box, 0.0, 1.0))

	r.RenderAt(0.1)
	if got := len(rec.OfKind("stroke-rect")); got != 1 {
		t.Fatalf("first render drew %d rects, want 1", got)
	}

	// Fractional-frame callbacks resolving to the same entry must not
	// redraw.
	rec.Reset()
	r.RenderAt(0.2)
	r.RenderAt(0.3)
	if len(rec.Ops) != 0 {
		t.Errorf("unchanged index redrew: %d ops", len(rec.Ops))
	}

	r.RenderAt(0.9)
	if got := len(rec.OfKind("stroke-rect")); got != 1 {
		t.Errorf("index change drew %d rects, want 1", got)
	}
}

func TestForceRenderAtIgnoresSuppression(t *testing.T) {
	r, rec := newTestRenderer()
	box := geom.Box{X1: 10, Y1: 30, X2: 50, Y2: 70, Class: "bicycle", Conf: 0.9}
	r.Timeline().Replace(oneBoxTimeline(box, 0.0))

	r.RenderAt(0.0)
	rec.Reset()
	r.ForceRenderAt(0.0)
	if got := len(rec.OfKind("stroke-rect")); got != 1 {
		t.Errorf("forced render drew %d rects, want 1", got)
	}
}

func TestRenderScalesNativeToDisplay(t *testing.T) {
	rec := draw.NewRecorder()
	r := NewRenderer(&RendererOptions{Canvas: rec})
	r.SetNativeSize(geom.Size{W: 1920, H: 1080})
	r.Resize(geom.Size{W: 960, H: 540}, 1)
	rec.Reset()

	box := geom.Box{X1: 192, Y1: 108, X2: 384, Y2: 216, Class: "bicycle", Conf: 0.5}
	r.Timeline().Replace(oneBoxTimeline(box, 0.0))
	r.RenderAt(0.0)

	rects := rec.OfKind("stroke-rect")
	if len(rects) != 1 {
		t.Fatalf("drew %d rects, want 1", len(rects))
	}
	got := rects[0]
	if got.X != 96 || got.Y != 54 || got.W != 96 || got.H != 54 {
		t.Errorf("rect = (%v,%v %vx%v), want (96,54 96x54)", got.X, got.Y, got.W, got.H)
	}
}

func TestLabelChipClamping(t *testing.T) {
	r, rec := newTestRenderer()

	// "bicycle 90.0%" is 13 chars at 7px plus padding: chip width 99.
	label := "bicycle 90.0%"
	chipW := float64(len(label))*rec.CharWidth + 2*chipPadX

	tests := []struct {
		name  string
		box   geom.Box
		wantX float64
		wantY float64
	}{
		{
			name:  "clamped to right edge",
			box:   geom.Box{X1: 80, Y1: 50, X2: 95, Y2: 90, Class: "bicycle", Conf: 0.9},
			wantX: 100 - chipW,
			wantY: 50 - chipHeight,
		},
		{
			name:  "clamped to top edge",
			box:   geom.Box{X1: 5, Y1: 10, X2: 40, Y2: 60, Class: "bicycle", Conf: 0.9},
			wantX: 5,
			wantY: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.Timeline().Replace(oneBoxTimeline(tt.box, 0.0))
			rec.Reset()
			r.ForceRenderAt(0.0)

			chips := rec.OfKind("fill-rect")
			if len(chips) != 1 {
				t.Fatalf("drew %d chips, want 1", len(chips))
			}
			if chips[0].X != tt.wantX || chips[0].Y != tt.wantY {
				t.Errorf("chip at (%v,%v), want (%v,%v)", chips[0].X, chips[0].Y, tt.wantX, tt.wantY)
			}

			texts := rec.OfKind("fill-text")
			if len(texts) != 1 || texts[0].Text != label {
				t.Errorf("label = %+v, want %q", texts, label)
			}
		})
	}
}

func TestVisibilityToggleKeepsTimeline(t *testing.T) {
	r, rec := newTestRenderer()
	box := geom.Box{X1: 10, Y1: 30, X2: 50, Y2: 70, Class: "bicycle", Conf: 0.9}
	r.Timeline().Replace(oneBoxTimeline(box, 0.0))
	r.RenderAt(0.0)

	rec.Reset()
	r.SetVisible(false)
	if got := len(rec.OfKind("clear")); got != 1 {
		t.Fatalf("hiding should clear the surface, got %d clears", got)
	}

	rec.Reset()
	r.RenderAt(0.0)
	if len(rec.Ops) != 0 {
		t.Error("hidden renderer must not draw")
	}
	if r.Timeline().Len() != 1 {
		t.Error("hiding must not discard the timeline")
	}

	rec.Reset()
	r.SetVisible(true)
	if got := len(rec.OfKind("stroke-rect")); got != 1 {
		t.Errorf("showing should redraw, got %d rects", got)
	}
}

func TestEmptyTimelineClearsOnly(t *testing.T) {
	r, rec := newTestRenderer()
	r.ForceRenderAt(5.0)

	if got := len(rec.OfKind("clear")); got != 1 {
		t.Errorf("got %d clears, want 1", got)
	}
	if got := len(rec.OfKind("stroke-rect")); got != 0 {
		t.Errorf("empty timeline drew %d rects", got)
	}
}

func TestResizeAppliesDevicePixelRatio(t *testing.T) {
	rec := draw.NewRecorder()
	r := NewRenderer(&RendererOptions{Canvas: rec})
	r.SetNativeSize(geom.Size{W: 100, H: 100})

	r.Resize(geom.Size{W: 320, H: 240}, 2)
	if rec.BackingW != 640 || rec.BackingH != 480 {
		t.Errorf("backing = %dx%d, want 640x480", rec.BackingW, rec.BackingH)
	}
	if rec.Scale != 2 {
		t.Errorf("scale = %v, want 2", rec.Scale)
	}
}

type frameCallbackPlayback struct {
	mu sync.Mutex
	fn func(t float64)
}

func (p *frameCallbackPlayback) Position() float64   { return 0 }
func (p *frameCallbackPlayback) ReloadSource() error { return nil }
func (p *frameCallbackPlayback) RecoverMedia() error { return nil }
func (p *frameCallbackPlayback) Close() error        { return nil }

func (p *frameCallbackPlayback) SetFrameCallback(fn func(t float64)) {
	p.mu.Lock()
	p.fn = fn
	p.mu.Unlock()
}

func (p *frameCallbackPlayback) callback() func(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fn
}

func TestFollowPrefersFrameCallback(t *testing.T) {
	r, _ := newTestRenderer()
	pb := &frameCallbackPlayback{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Follow(ctx, pb)
		close(done)
	}()

	deadline := time.After(time.Second)
	for pb.callback() == nil {
		select {
		case <-deadline:
			t.Fatal("frame callback never registered")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done
	if pb.callback() != nil {
		t.Error("frame callback should be unregistered after Follow returns")
	}
}

type positionPlayback struct{ pos float64 }

func (p *positionPlayback) Position() float64   { return p.pos }
func (p *positionPlayback) ReloadSource() error { return nil }
func (p *positionPlayback) RecoverMedia() error { return nil }
func (p *positionPlayback) Close() error        { return nil }

func TestFollowFallbackTicker(t *testing.T) {
	r, rec := newTestRenderer()
	r.frameInterval = 2 * time.Millisecond
	box := geom.Box{X1: 10, Y1: 30, X2: 50, Y2: 70, Class: "bicycle", Conf: 0.9}
	r.Timeline().Replace(oneBoxTimeline(box, 0.0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r.Follow(ctx, &positionPlayback{pos: 0.0})

	if got := len(rec.OfKind("stroke-rect")); got != 1 {
		t.Errorf("fallback loop drew %d rects, want exactly 1 (index unchanged)", got)
	}
}
