package draw

import (
	"image/color"
	"testing"

	"github.com/dkozyrev/veloview/internal/geom"
)

func TestSetBackingSizeIdempotent(t *testing.T) {
	c := NewImageCanvas()
	c.SetBackingSize(100, 50)
	c.FillRect(10, 10, 5, 5, color.RGBA{R: 255, A: 255})

	before := c.Image().RGBAAt(12, 12)
	if before.A == 0 {
		t.Fatal("expected filled pixel before resize")
	}

	// Same size again must keep drawn content.
	c.SetBackingSize(100, 50)
	if got := c.Image().RGBAAt(12, 12); got != before {
		t.Errorf("pixel changed after no-op resize: %v != %v", got, before)
	}

	// A real resize replaces the backing store.
	c.SetBackingSize(200, 100)
	if got := c.Image().RGBAAt(12, 12); got.A != 0 {
		t.Errorf("expected cleared store after resize, got %v", got)
	}
}

func TestScaleAppliesToDevicePixels(t *testing.T) {
	c := NewImageCanvas()
	c.SetBackingSize(200, 200)
	c.SetScale(2)
	c.FillRect(10, 10, 20, 20, color.RGBA{G: 255, A: 255})

	// Display-unit rect (10,10,20,20) lands at device (20,20)-(60,60).
	if got := c.Image().RGBAAt(30, 30); got.G != 255 {
		t.Errorf("expected fill inside scaled rect, got %v", got)
	}
	if got := c.Image().RGBAAt(15, 15); got.G != 0 {
		t.Errorf("expected no fill outside scaled rect, got %v", got)
	}
}

func TestFillPathCoversInterior(t *testing.T) {
	c := NewImageCanvas()
	c.SetBackingSize(100, 100)
	c.FillPath([]geom.Point{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 50, Y: 90}}, color.RGBA{B: 255, A: 255})

	if got := c.Image().RGBAAt(50, 30); got.B == 0 {
		t.Errorf("expected fill inside triangle, got %v", got)
	}
	if got := c.Image().RGBAAt(5, 5); got.B != 0 {
		t.Errorf("expected no fill outside triangle, got %v", got)
	}
}

func TestMeasureText(t *testing.T) {
	c := NewImageCanvas()
	if w := c.MeasureText("bicycle"); w <= 0 {
		t.Errorf("MeasureText returned %v", w)
	}
	if c.MeasureText("bicycle 97.5%") <= c.MeasureText("b") {
		t.Error("longer string should measure wider")
	}
}
