package draw

import (
	"image/color"

	"github.com/dkozyrev/veloview/internal/geom"
)

// Op is a single recorded drawing operation.
type Op struct {
	Kind  string // "clear", "stroke-rect", "fill-rect", "fill-circle", "stroke-path", "fill-path", "fill-text"
	X, Y  float64
	W, H  float64
	Text  string
	Pts   []geom.Point
	Color color.RGBA
}

// Recorder is a Canvas that records operations instead of rasterizing them.
// Renderer and editor tests assert against the recorded op stream.
type Recorder struct {
	Ops       []Op
	BackingW  int
	BackingH  int
	Scale     float64
	CharWidth float64
}

func NewRecorder() *Recorder {
	return &Recorder{Scale: 1, CharWidth: 7}
}

func (r *Recorder) SetBackingSize(w, h int) { r.BackingW, r.BackingH = w, h }
func (r *Recorder) SetScale(s float64)      { r.Scale = s }

func (r *Recorder) Clear() {
	r.Ops = append(r.Ops, Op{Kind: "clear"})
}

func (r *Recorder) StrokeRect(x, y, w, h float64, c color.RGBA, _ float64) {
	r.Ops = append(r.Ops, Op{Kind: "stroke-rect", X: x, Y: y, W: w, H: h, Color: c})
}

func (r *Recorder) FillRect(x, y, w, h float64, c color.RGBA) {
	r.Ops = append(r.Ops, Op{Kind: "fill-rect", X: x, Y: y, W: w, H: h, Color: c})
}

func (r *Recorder) FillCircle(cx, cy, rad float64, c color.RGBA) {
	r.Ops = append(r.Ops, Op{Kind: "fill-circle", X: cx, Y: cy, W: rad, Color: c})
}

func (r *Recorder) StrokePath(pts []geom.Point, _ bool, c color.RGBA, _ float64) {
	r.Ops = append(r.Ops, Op{Kind: "stroke-path", Pts: append([]geom.Point(nil), pts...), Color: c})
}

func (r *Recorder) FillPath(pts []geom.Point, c color.RGBA) {
	r.Ops = append(r.Ops, Op{Kind: "fill-path", Pts: append([]geom.Point(nil), pts...), Color: c})
}

func (r *Recorder) MeasureText(s string) float64 {
	return float64(len(s)) * r.CharWidth
}

func (r *Recorder) FillText(s string, x, y float64, c color.RGBA) {
	r.Ops = append(r.Ops, Op{Kind: "fill-text", X: x, Y: y, Text: s, Color: c})
}

// OfKind returns the recorded ops with the given kind, in order.
func (r *Recorder) OfKind(kind string) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Reset discards recorded operations but keeps surface geometry.
func (r *Recorder) Reset() { r.Ops = nil }
