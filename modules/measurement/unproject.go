package measurement

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

// Unprojector maps between viewport pixels and world space for one pose.
type Unprojector struct {
	pose     CameraPose
	viewport arframe.Size
}

// NewUnprojector returns an Unprojector for pose rendered into viewport.
func NewUnprojector(pose CameraPose, viewport arframe.Size) (*Unprojector, error) {
	if viewport.Empty() {
		return nil, fmt.Errorf("measurement: empty viewport %dx%d", viewport.Width, viewport.Height)
	}
	return &Unprojector{pose: pose, viewport: viewport}, nil
}

// ScreenDepth projects a point distance meters in front of the camera and
// returns its normalized window depth in [0,1].
func (u *Unprojector) ScreenDepth(distance float32) (float32, error) {
	if !(distance > 0) {
		return 0, fmt.Errorf("%w: distance %v", ErrDegenerate, distance)
	}

	ahead := u.pose.View.Inv().Mul4x1(mgl32.Vec4{0, 0, -distance, 1}).Vec3()
	win := mgl32.Project(ahead, u.pose.View, u.pose.Projection, 0, 0, u.viewport.Width, u.viewport.Height)

	z := win.Z()
	if !finite(z) || z < 0 || z > 1 {
		return 0, fmt.Errorf("%w: screen depth %v", ErrDegenerate, z)
	}
	return z, nil
}

// Unproject maps a viewport pixel (top-left origin) at window depth screenZ
// back to world space.
func (u *Unprojector) Unproject(pixel mgl32.Vec2, screenZ float32) (mgl32.Vec3, error) {
	// Window coordinates are bottom-up.
	win := mgl32.Vec3{pixel.X(), float32(u.viewport.Height) - pixel.Y(), screenZ}

	obj, err := mgl32.UnProject(win, u.pose.View, u.pose.Projection, 0, 0, u.viewport.Width, u.viewport.Height)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	if !finite(obj.X()) || !finite(obj.Y()) || !finite(obj.Z()) {
		return mgl32.Vec3{}, fmt.Errorf("%w: non-finite point at pixel %v", ErrDegenerate, pixel)
	}

	cam := u.pose.View.Mul4x1(obj.Vec4(1))
	if cam.Z() >= 0 {
		return mgl32.Vec3{}, fmt.Errorf("%w: point behind camera at pixel %v", ErrDegenerate, pixel)
	}
	return obj, nil
}

// Project maps a world point to a viewport pixel (top-left origin).
func (u *Unprojector) Project(world mgl32.Vec3) mgl32.Vec2 {
	win := mgl32.Project(world, u.pose.View, u.pose.Projection, 0, 0, u.viewport.Width, u.viewport.Height)
	return mgl32.Vec2{win.X(), float32(u.viewport.Height) - win.Y()}
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
