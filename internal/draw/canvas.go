// Package draw defines the drawing surface used by the overlay renderer and
// the ROI editor. All drawing coordinates are in unscaled display units; the
// surface applies its own device-pixel-ratio scale so primitives stay crisp
// on high-density outputs.
package draw

import (
	"image/color"

	"github.com/dkozyrev/veloview/internal/geom"
)

// Canvas is a minimal 2D drawing surface.
type Canvas interface {
	// SetBackingSize sets the backing store resolution in device pixels.
	// Calling it again with the same size must not disturb drawn content.
	SetBackingSize(w, h int)
	// SetScale sets the device pixel ratio applied to all drawing ops.
	SetScale(s float64)
	Clear()

	StrokeRect(x, y, w, h float64, c color.RGBA, lineWidth float64)
	FillRect(x, y, w, h float64, c color.RGBA)
	FillCircle(cx, cy, r float64, c color.RGBA)
	StrokePath(pts []geom.Point, closed bool, c color.RGBA, lineWidth float64)
	FillPath(pts []geom.Point, c color.RGBA)

	// MeasureText returns the rendered width of s in display units.
	MeasureText(s string) float64
	FillText(s string, x, y float64, c color.RGBA)
}
