package arframe

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDepthMapAt(t *testing.T) {
	d := NewDepthMap(4, 3)
	d.Set(1, 2, 1.5)
	d.Set(3, 0, float32(math.NaN()))

	tests := []struct {
		name string
		x, y int
		want float32
		ok   bool
	}{
		{"stored", 1, 2, 1.5, true},
		{"zero is missing", 0, 0, 0, false},
		{"nan is missing", 3, 0, 0, false},
		{"out of range x", 4, 0, 0, false},
		{"negative y", 0, -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.At(tt.x, tt.y)
			if ok != tt.ok || got != tt.want {
				t.Errorf("At(%d,%d) = (%v,%v), want (%v,%v)", tt.x, tt.y, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNilDepthMap(t *testing.T) {
	var d *DepthMap
	if _, ok := d.At(0, 0); ok {
		t.Error("nil depth map should report no sample")
	}
}

func TestSizeEmpty(t *testing.T) {
	if !(Size{Width: 0, Height: 10}).Empty() {
		t.Error("zero width should be empty")
	}
	if (Size{Width: 1, Height: 1}).Empty() {
		t.Error("1x1 should not be empty")
	}
}

func TestNewPerspectiveCamera(t *testing.T) {
	cam := NewPerspectiveCamera(mgl32.Vec3{0, 0, 2}, mgl32.Vec3{}, 60, Size{Width: 640, Height: 480})

	pos := cam.Transform().Col(3).Vec3()
	if !pos.ApproxEqualThreshold(mgl32.Vec3{0, 0, 2}, 1e-4) {
		t.Errorf("camera position = %v, want (0,0,2)", pos)
	}

	// The target projects to the viewport center.
	win := mgl32.Project(mgl32.Vec3{}, cam.View, cam.Projection, 0, 0, 640, 480)
	if math.Abs(float64(win.X()-320)) > 0.01 || math.Abs(float64(win.Y()-240)) > 0.01 {
		t.Errorf("target projects to (%v, %v), want (320, 240)", win.X(), win.Y())
	}
}
