package draw

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dkozyrev/veloview/internal/geom"
)

// ImageCanvas rasterizes drawing operations into an in-memory RGBA image.
// It backs the photo overlay flow and the renderer tests.
type ImageCanvas struct {
	img   *image.RGBA
	scale float64
	face  font.Face
}

// NewImageCanvas creates a canvas with an empty backing store. Callers must
// invoke SetBackingSize before drawing.
func NewImageCanvas() *ImageCanvas {
	return &ImageCanvas{
		img:   image.NewRGBA(image.Rect(0, 0, 0, 0)),
		scale: 1,
		face:  basicfont.Face7x13,
	}
}

// Image exposes the backing store for encoding or compositing.
func (c *ImageCanvas) Image() *image.RGBA { return c.img }

// SetBackingSize reallocates the backing store only when the requested
// device-pixel size differs from the current one.
func (c *ImageCanvas) SetBackingSize(w, h int) {
	b := c.img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return
	}
	c.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

func (c *ImageCanvas) SetScale(s float64) {
	if s > 0 {
		c.scale = s
	}
}

func (c *ImageCanvas) Clear() {
	stddraw.Draw(c.img, c.img.Bounds(), image.Transparent, image.Point{}, stddraw.Src)
}

func (c *ImageCanvas) FillRect(x, y, w, h float64, col color.RGBA) {
	r := c.deviceRect(x, y, w, h)
	stddraw.Draw(c.img, r, image.NewUniform(col), image.Point{}, stddraw.Over)
}

func (c *ImageCanvas) StrokeRect(x, y, w, h float64, col color.RGBA, lineWidth float64) {
	lw := lineWidth
	if lw <= 0 {
		lw = 1
	}
	c.FillRect(x, y, w, lw, col)
	c.FillRect(x, y+h-lw, w, lw, col)
	c.FillRect(x, y, lw, h, col)
	c.FillRect(x+w-lw, y, lw, h, col)
}

func (c *ImageCanvas) FillCircle(cx, cy, r float64, col color.RGBA) {
	dcx, dcy, dr := cx*c.scale, cy*c.scale, r*c.scale
	src := image.NewUniform(col)
	for y := int(math.Floor(dcy - dr)); y <= int(math.Ceil(dcy+dr)); y++ {
		dy := float64(y) + 0.5 - dcy
		half := dr*dr - dy*dy
		if half < 0 {
			continue
		}
		dx := math.Sqrt(half)
		row := image.Rect(int(math.Round(dcx-dx)), y, int(math.Round(dcx+dx))+1, y+1)
		stddraw.Draw(c.img, row, src, image.Point{}, stddraw.Over)
	}
}

func (c *ImageCanvas) StrokePath(pts []geom.Point, closed bool, col color.RGBA, lineWidth float64) {
	if len(pts) < 2 {
		return
	}
	for i := 1; i < len(pts); i++ {
		c.line(pts[i-1], pts[i], col, lineWidth)
	}
	if closed {
		c.line(pts[len(pts)-1], pts[0], col, lineWidth)
	}
}

// FillPath fills a polygon with even-odd scanline coverage.
func (c *ImageCanvas) FillPath(pts []geom.Point, col color.RGBA) {
	if len(pts) < 3 {
		return
	}
	dev := make([]geom.Point, len(pts))
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i, p := range pts {
		dev[i] = geom.Point{X: p.X * c.scale, Y: p.Y * c.scale}
		minY = min(minY, dev[i].Y)
		maxY = max(maxY, dev[i].Y)
	}
	src := image.NewUniform(col)
	for y := int(math.Floor(minY)); y <= int(math.Ceil(maxY)); y++ {
		sy := float64(y) + 0.5
		var xs []float64
		for i := range dev {
			a, b := dev[i], dev[(i+1)%len(dev)]
			if (a.Y <= sy) == (b.Y <= sy) {
				continue
			}
			xs = append(xs, a.X+(sy-a.Y)/(b.Y-a.Y)*(b.X-a.X))
		}
		if len(xs) < 2 {
			continue
		}
		sortFloats(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			row := image.Rect(int(math.Round(xs[i])), y, int(math.Round(xs[i+1]))+1, y+1)
			stddraw.Draw(c.img, row, src, image.Point{}, stddraw.Over)
		}
	}
}

func (c *ImageCanvas) MeasureText(s string) float64 {
	return float64(font.MeasureString(c.face, s).Ceil())
}

// FillText draws s with its baseline near the bottom of the (x, y) anchored
// line box, matching how the renderer positions label text inside chips.
func (c *ImageCanvas) FillText(s string, x, y float64, col color.RGBA) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(math.Round(x * c.scale * 64)),
			Y: fixed.Int26_6(math.Round(y * c.scale * 64)),
		},
	}
	d.DrawString(s)
}

func (c *ImageCanvas) deviceRect(x, y, w, h float64) image.Rectangle {
	return image.Rect(
		int(math.Round(x*c.scale)),
		int(math.Round(y*c.scale)),
		int(math.Round((x+w)*c.scale)),
		int(math.Round((y+h)*c.scale)),
	)
}

func (c *ImageCanvas) line(a, b geom.Point, col color.RGBA, lineWidth float64) {
	lw := lineWidth
	if lw <= 0 {
		lw = 1
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy)) * c.scale))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c.FillRect(a.X+dx*t-lw/2, a.Y+dy*t-lw/2, lw, lw, col)
	}
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
