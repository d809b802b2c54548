package geom

import (
	"math"
	"testing"
)

func TestTransformRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		native  Size
		display Size
	}{
		{"downscale", Size{W: 1920, H: 1080}, Size{W: 960, H: 540}},
		{"upscale", Size{W: 640, H: 480}, Size{W: 1333, H: 1000}},
		{"non-uniform", Size{W: 1280, H: 720}, Size{W: 500, H: 900}},
		{"identity", Size{W: 800, H: 600}, Size{W: 800, H: 600}},
	}

	points := []Point{
		{X: 0, Y: 0},
		{X: 1, Y: 1},
		{X: 639.5, Y: 479.25},
		{X: 123.456, Y: 78.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf := Transform{Native: tt.native, Display: tt.display}
			if !tf.Valid() {
				t.Fatalf("transform unexpectedly invalid")
			}
			for _, p := range points {
				got := tf.ToNative(tf.ToDisplay(p))
				if math.Abs(got.X-p.X) > 1e-9 || math.Abs(got.Y-p.Y) > 1e-9 {
					t.Errorf("round trip of %+v = %+v", p, got)
				}
			}
		})
	}
}

func TestTransformScaling(t *testing.T) {
	tf := Transform{Native: Size{W: 1000, H: 500}, Display: Size{W: 500, H: 250}}

	got := tf.ToDisplay(Point{X: 1000, Y: 500})
	if got.X != 500 || got.Y != 250 {
		t.Errorf("ToDisplay(1000,500) = %+v, want (500,250)", got)
	}

	got = tf.ToNative(Point{X: 250, Y: 125})
	if got.X != 500 || got.Y != 250 {
		t.Errorf("ToNative(250,125) = %+v, want (500,250)", got)
	}
}

func TestTransformZeroNativeInvalid(t *testing.T) {
	tests := []Size{
		{W: 0, H: 1080},
		{W: 1920, H: 0},
		{W: 0, H: 0},
	}
	for _, native := range tests {
		tf := Transform{Native: native, Display: Size{W: 960, H: 540}}
		if tf.Valid() {
			t.Errorf("transform with native %+v should be invalid", native)
		}
	}
}

func TestClamp(t *testing.T) {
	native := Size{W: 1920, H: 1080}
	tests := []struct {
		in   Point
		want Point
	}{
		{Point{X: -5, Y: 10}, Point{X: 0, Y: 10}},
		{Point{X: 2000, Y: 1200}, Point{X: 1919, Y: 1079}},
		{Point{X: 100, Y: 200}, Point{X: 100, Y: 200}},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in, native); got != tt.want {
			t.Errorf("Clamp(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
