package geom

// Transform maps between native media coordinates and display surface
// coordinates. The mapping is a per-axis linear scale; it carries no
// translation because the surface is assumed to cover the media exactly.
type Transform struct {
	Native  Size
	Display Size
}

// Valid reports whether the transform can be applied. A zero native size
// would divide by zero, so callers must skip drawing when Valid is false.
func (t Transform) Valid() bool {
	return !t.Native.Zero() && !t.Display.Zero()
}

// ToDisplay converts a native-space point to display space.
func (t Transform) ToDisplay(p Point) Point {
	return Point{
		X: p.X * (t.Display.W / t.Native.W),
		Y: p.Y * (t.Display.H / t.Native.H),
	}
}

// ToNative converts a display-space point back to native space.
func (t Transform) ToNative(p Point) Point {
	return Point{
		X: p.X * (t.Native.W / t.Display.W),
		Y: p.Y * (t.Native.H / t.Display.H),
	}
}
