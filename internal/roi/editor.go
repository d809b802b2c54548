// Package roi implements the region-of-interest polygon editor: a point
// polygon drawn over a still image in native coordinates, edited through
// pointer events in display space and exported in normalized form for
// counting submissions.
package roi

import (
	"image/color"
	"log/slog"
	"math"
	"sync"

	"github.com/dkozyrev/veloview/internal/draw"
	"github.com/dkozyrev/veloview/internal/events"
	"github.com/dkozyrev/veloview/internal/geom"
	"github.com/dkozyrev/veloview/internal/logging"
)

// HitRadius is the pointer hit-test radius around a point handle, in
// display pixels.
const HitRadius = 8.0

const (
	handleRadius = 4.0
	outlineWidth = 2.0
	// MinPoints is the smallest point count forming a valid polygon; below
	// it the ROI is silently inert.
	MinPoints = 3
)

var (
	editOutline = color.RGBA{R: 255, G: 82, B: 82, A: 255}
	editFill    = color.RGBA{R: 255, G: 82, B: 82, A: 64}
	viewOutline = color.RGBA{R: 41, G: 121, B: 255, A: 255}
	viewFill    = color.RGBA{R: 41, G: 121, B: 255, A: 48}
	handleColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// EditorOptions configure NewEditor. Bus is optional.
type EditorOptions struct {
	Canvas draw.Canvas
	Bus    *events.Bus
}

// Editor holds the polygon state. Points live in native image coordinates;
// pointer events arrive in display coordinates and are converted through
// the current transform. A drag captures one point index exclusively until
// the pointer is released.
type Editor struct {
	canvas draw.Canvas
	bus    *events.Bus
	logger *slog.Logger

	mu        sync.Mutex
	transform geom.Transform
	points    []geom.Point
	editMode  bool
	enabled   bool
	dragIndex int
}

func NewEditor(opts *EditorOptions) *Editor {
	return &Editor{
		canvas:    opts.Canvas,
		bus:       opts.Bus,
		logger:    logging.GetLogger("roi"),
		dragIndex: -1,
	}
}

// SetNativeSize records the image's native resolution and redraws.
func (e *Editor) SetNativeSize(sz geom.Size) {
	e.mu.Lock()
	e.transform.Native = sz
	e.render()
	e.mu.Unlock()
}

// Resize recomputes the backing resolution for the display size and device
// pixel ratio, then redraws the polygon.
func (e *Editor) Resize(display geom.Size, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	e.mu.Lock()
	e.transform.Display = display
	e.canvas.SetBackingSize(int(math.Round(display.W*dpr)), int(math.Round(display.H*dpr)))
	e.canvas.SetScale(dpr)
	e.render()
	e.mu.Unlock()
}

// SetEditMode toggles between View and Edit. Leaving edit mode ends any
// active drag but keeps the points.
func (e *Editor) SetEditMode(edit bool) {
	e.mu.Lock()
	if e.editMode == edit {
		e.mu.Unlock()
		return
	}
	e.editMode = edit
	e.dragIndex = -1
	e.render()
	e.mu.Unlock()
	e.publish()
}

func (e *Editor) EditMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editMode
}

// CancelEdit is the escape input: return to View without discarding points.
func (e *Editor) CancelEdit() {
	e.SetEditMode(false)
}

// SetEnabled toggles whether the polygon is attached to submissions at all.
func (e *Editor) SetEnabled(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
	e.publish()
}

func (e *Editor) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// PointerDown handles a press at p in display coordinates. In edit mode a
// press on an existing handle begins an exclusive drag of that point;
// anywhere else it appends a new point. Ignored in view mode.
func (e *Editor) PointerDown(p geom.Point) {
	e.mu.Lock()
	if !e.editMode || !e.transform.Valid() || e.dragIndex != -1 {
		e.mu.Unlock()
		return
	}

	if i := e.hitTest(p); i != -1 {
		e.dragIndex = i
		e.mu.Unlock()
		return
	}

	e.points = append(e.points, geom.Clamp(e.transform.ToNative(p), e.transform.Native))
	e.render()
	e.mu.Unlock()
	e.publish()
}

// PointerMove moves the dragged point to p, clamped to the native bounds.
// No-op unless a drag is active.
func (e *Editor) PointerMove(p geom.Point) {
	e.mu.Lock()
	if e.dragIndex == -1 {
		e.mu.Unlock()
		return
	}
	e.points[e.dragIndex] = geom.Clamp(e.transform.ToNative(p), e.transform.Native)
	e.render()
	e.mu.Unlock()
}

// PointerUp ends the active drag, if any.
func (e *Editor) PointerUp() {
	e.mu.Lock()
	had := e.dragIndex != -1
	e.dragIndex = -1
	e.mu.Unlock()
	if had {
		e.publish()
	}
}

// Clear discards all points unconditionally, in any mode.
func (e *Editor) Clear() {
	e.mu.Lock()
	e.points = nil
	e.dragIndex = -1
	e.render()
	e.mu.Unlock()
	e.publish()
}

// Points returns a copy of the polygon in native coordinates.
func (e *Editor) Points() []geom.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]geom.Point(nil), e.points...)
}

// Export returns the polygon normalized to [0,1] x [0,1], and whether it
// should be attached to a submission at all: only when ROI usage is
// enabled and the polygon has enough points to be valid.
func (e *Editor) Export() ([][2]float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled || len(e.points) < MinPoints || e.transform.Native.Zero() {
		return nil, false
	}
	out := make([][2]float64, len(e.points))
	for i, p := range e.points {
		out[i] = [2]float64{p.X / e.transform.Native.W, p.Y / e.transform.Native.H}
	}
	return out, true
}

// hitTest returns the index of the first point within HitRadius of p in
// display space, or -1. Caller holds e.mu.
func (e *Editor) hitTest(p geom.Point) int {
	for i, pt := range e.points {
		d := e.transform.ToDisplay(pt)
		if math.Hypot(d.X-p.X, d.Y-p.Y) <= HitRadius {
			return i
		}
	}
	return -1
}

// render redraws the polygon: outline for any points, translucent fill and
// a closed path only for a valid polygon, handles always. Caller holds
// e.mu.
func (e *Editor) render() {
	e.canvas.Clear()
	if len(e.points) == 0 || !e.transform.Valid() {
		return
	}

	outline, fill := viewOutline, viewFill
	if e.editMode {
		outline, fill = editOutline, editFill
	}

	display := make([]geom.Point, len(e.points))
	for i, p := range e.points {
		display[i] = e.transform.ToDisplay(p)
	}

	closed := len(display) >= MinPoints
	if closed {
		e.canvas.FillPath(display, fill)
	}
	e.canvas.StrokePath(display, closed, outline, outlineWidth)
	for _, p := range display {
		e.canvas.FillCircle(p.X, p.Y, handleRadius, handleColor)
	}
}

func (e *Editor) publish() {
	if e.bus == nil {
		return
	}
	e.mu.Lock()
	ev := events.ROIChangedEvent{
		Points:   len(e.points),
		EditMode: e.editMode,
		Valid:    len(e.points) >= MinPoints,
	}
	e.mu.Unlock()
	e.bus.Publish(ev)
}
