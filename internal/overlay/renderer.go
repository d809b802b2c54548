package overlay

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dkozyrev/veloview/internal/draw"
	"github.com/dkozyrev/veloview/internal/geom"
	"github.com/dkozyrev/veloview/internal/logging"
	"github.com/dkozyrev/veloview/internal/metrics"
	"github.com/dkozyrev/veloview/internal/player"
)

// Label chip geometry in display units.
const (
	chipHeight = 16.0
	chipPadX   = 4.0
	boxStrokeW = 2.0
)

var (
	boxColor  = color.RGBA{R: 0, G: 200, B: 83, A: 255}
	chipColor = color.RGBA{R: 0, G: 0, B: 0, A: 180}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// RendererOptions configure NewRenderer. Metrics is optional.
type RendererOptions struct {
	Canvas   draw.Canvas
	Timeline *Timeline
	Metrics  *metrics.Metrics
}

// Renderer draws the timeline entry nearest to the current playback time
// onto its canvas. While playing it runs once per presented frame (or on a
// fixed cadence when the engine has no frame callback) and skips the redraw
// whenever the resolved index is unchanged, so fractional-frame callbacks
// stay cheap.
type Renderer struct {
	canvas  draw.Canvas
	tl      *Timeline
	metrics *metrics.Metrics
	logger  *slog.Logger

	// fixed-rate fallback cadence when the playback engine exposes no
	// frame-accurate callback
	frameInterval time.Duration

	mu        sync.Mutex
	transform geom.Transform
	dpr       float64
	visible   bool
	lastIndex int
	lastTime  float64
}

func NewRenderer(opts *RendererOptions) *Renderer {
	tl := opts.Timeline
	if tl == nil {
		tl = NewTimeline()
	}
	return &Renderer{
		canvas:        opts.Canvas,
		tl:            tl,
		metrics:       opts.Metrics,
		logger:        logging.GetLogger("overlay"),
		frameInterval: 33 * time.Millisecond,
		dpr:           1,
		visible:       true,
		lastIndex:     None,
	}
}

// Timeline returns the renderer's timeline for loading detection results.
func (r *Renderer) Timeline() *Timeline { return r.tl }

// SetNativeSize records the media's native resolution, which all box
// coordinates are expressed in.
func (r *Renderer) SetNativeSize(sz geom.Size) {
	r.mu.Lock()
	r.transform.Native = sz
	r.mu.Unlock()
}

// Resize recomputes the backing resolution for a new display size or device
// pixel ratio and immediately redraws the current entry. Safe to call with
// unchanged values; the canvas keeps its content when the size is the same.
func (r *Renderer) Resize(display geom.Size, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}

	r.mu.Lock()
	r.transform.Display = display
	r.dpr = dpr
	r.canvas.SetBackingSize(int(math.Round(display.W*dpr)), int(math.Round(display.H*dpr)))
	r.canvas.SetScale(dpr)
	t := r.lastTime
	r.mu.Unlock()

	r.ForceRenderAt(t)
}

// SetVisible toggles overlay drawing. Hiding clears the surface without
// discarding the loaded timeline; showing redraws at the last known time.
func (r *Renderer) SetVisible(visible bool) {
	r.mu.Lock()
	if r.visible == visible {
		r.mu.Unlock()
		return
	}
	r.visible = visible
	if !visible {
		r.canvas.Clear()
		r.lastIndex = None
	}
	t := r.lastTime
	r.mu.Unlock()

	if visible {
		r.ForceRenderAt(t)
	}
}

// Visible reports whether overlay drawing is enabled.
func (r *Renderer) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

// RenderAt resolves the nearest entry to playback time t and redraws only
// when the resolved index differs from the previous call.
func (r *Renderer) RenderAt(t float64) {
	r.renderAt(t, false)
}

// ForceRenderAt redraws unconditionally. Used on pause, seek, resize and
// visibility changes, when the per-frame loop is not running.
func (r *Renderer) ForceRenderAt(t float64) {
	r.renderAt(t, true)
}

func (r *Renderer) renderAt(t float64, force bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastTime = t
	if !r.visible {
		return
	}

	idx := r.tl.Nearest(t)
	if !force && idx == r.lastIndex {
		if r.metrics != nil {
			r.metrics.OverlaySkips.Inc()
		}
		return
	}
	r.lastIndex = idx

	r.canvas.Clear()
	if idx == None || !r.transform.Valid() {
		return
	}
	entry, ok := r.tl.At(idx)
	if !ok {
		return
	}
	for _, box := range entry.Boxes {
		r.drawBox(box)
	}
	if r.metrics != nil {
		r.metrics.OverlayRedraws.Inc()
	}
}

// drawBox renders one detection: a stroked rectangle plus a filled label
// chip. The chip sits above the box top edge, clamped so it never leaves
// the surface on the right or the top. Caller holds r.mu.
func (r *Renderer) drawBox(box geom.Box) {
	tr := r.transform
	p1 := tr.ToDisplay(geom.Point{X: box.X1, Y: box.Y1})
	p2 := tr.ToDisplay(geom.Point{X: box.X2, Y: box.Y2})

	r.canvas.StrokeRect(p1.X, p1.Y, p2.X-p1.X, p2.Y-p1.Y, boxColor, boxStrokeW)

	label := fmt.Sprintf("%s %.1f%%", box.Class, box.Conf*100)
	chipW := r.canvas.MeasureText(label) + 2*chipPadX

	chipX := math.Min(p1.X, tr.Display.W-chipW)
	chipX = math.Max(chipX, 0)
	chipY := math.Max(p1.Y-chipHeight, 0)

	r.canvas.FillRect(chipX, chipY, chipW, chipHeight, chipColor)
	r.canvas.FillText(label, chipX+chipPadX, chipY+chipHeight-chipPadX, textColor)
}

// Follow runs the render loop against a playback session until ctx is
// done. It prefers the engine's frame-accurate callback and falls back to
// a fixed-rate ticker.
func (r *Renderer) Follow(ctx context.Context, pb player.Playback) {
	if fn, ok := pb.(player.FrameNotifier); ok {
		r.logger.Debug("render loop using frame callback")
		fn.SetFrameCallback(r.RenderAt)
		<-ctx.Done()
		fn.SetFrameCallback(nil)
		return
	}

	r.logger.Debug("render loop using fixed-rate fallback", "interval", r.frameInterval)
	ticker := time.NewTicker(r.frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RenderAt(pb.Position())
		}
	}
}
