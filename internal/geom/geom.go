// Package geom holds the shared coordinate types and the native/display
// transform used by the overlay renderer and the ROI editor.
package geom

// Point is a position in either native or display coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	W float64
	H float64
}

// Zero reports whether either axis is zero, which makes scaling undefined.
func (s Size) Zero() bool {
	return s.W == 0 || s.H == 0
}

// Box is a detection bounding box in the source media's native pixel
// coordinates, as reported by the counting backend.
type Box struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Class string  `json:"cls_name"`
	Conf  float64 `json:"conf"`
}

// Clamp limits p to the inclusive pixel range [0,w-1] x [0,h-1].
func Clamp(p Point, native Size) Point {
	return Point{
		X: min(max(p.X, 0), native.W-1),
		Y: min(max(p.Y, 0), native.H-1),
	}
}
