package measurement

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/geo/r3"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

var (
	// ErrNoDetection is returned when the frame has no detection box.
	ErrNoDetection = errors.New("measurement: no detection")

	// ErrNoDepth is returned when neither a depth map nor a surface hit is available.
	ErrNoDepth = errors.New("measurement: no depth sample")

	// ErrDegenerate is returned when a corner cannot be unprojected to a
	// finite point in front of the camera.
	ErrDegenerate = errors.New("measurement: degenerate unprojection")
)

// CameraPose is the camera state used for projection.
type CameraPose struct {
	// View maps world to camera coordinates.
	View mgl32.Mat4
	// Projection maps camera coordinates to clip space.
	Projection mgl32.Mat4
}

// PoseFromCamera extracts the pose of a frame camera.
func PoseFromCamera(c arframe.Camera) CameraPose {
	return CameraPose{View: c.View, Projection: c.Projection}
}

// Position returns the camera origin in world coordinates.
func (p CameraPose) Position() mgl32.Vec3 {
	return p.View.Inv().Col(3).Vec3()
}

// HeadingDegrees returns the rotation of the camera about the world Y axis,
// counterclockwise positive, rounded to two decimals.
func (p CameraPose) HeadingDegrees() float32 {
	forward := p.View.Inv().Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()
	yaw := math.Atan2(float64(-forward.X()), float64(-forward.Z()))
	deg := yaw * 180 / math.Pi
	return float32(math.Round(deg*100) / 100)
}

// DepthSample is the scene distance at one viewport pixel.
type DepthSample struct {
	Pixel  mgl32.Vec2 // viewport pixel, top-left origin
	Meters float32
}

// DetectionBox is a detector result in normalized coordinates with a
// bottom-left origin.
type DetectionBox struct {
	MinX, MinY float32
	MaxX, MaxY float32

	Label      string
	Confidence float32
}

// Validate checks that the box is inside the unit square and not inverted.
func (b DetectionBox) Validate() error {
	for _, v := range []float32{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if v < 0 || v > 1 || v != v {
			return fmt.Errorf("measurement: box coordinate %v outside [0,1]", v)
		}
	}
	if b.MinX >= b.MaxX || b.MinY >= b.MaxY {
		return fmt.Errorf("measurement: empty box [%v,%v]-[%v,%v]", b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	return nil
}

// Corner indexes into the four box corners.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

// ToViewport converts the box to viewport pixel corners in TopLeft, TopRight,
// BottomRight, BottomLeft order. The vertical axis is flipped here.
func (b DetectionBox) ToViewport(viewport arframe.Size) [4]mgl32.Vec2 {
	w := float32(viewport.Width)
	h := float32(viewport.Height)

	left := w * b.MinX
	right := w * b.MaxX
	top := h * (1 - b.MaxY)
	bottom := h * (1 - b.MinY)

	return [4]mgl32.Vec2{
		TopLeft:     {left, top},
		TopRight:    {right, top},
		BottomRight: {right, bottom},
		BottomLeft:  {left, bottom},
	}
}

// Midpoints are the centers of the four box edges in world space.
type Midpoints struct {
	Top    r3.Vector
	Bottom r3.Vector
	Left   r3.Vector
	Right  r3.Vector
}

// Result is one frame's measurement.
type Result struct {
	Label      string
	Confidence float32

	// Corners in world space, indexed by Corner.
	Corners   [4]r3.Vector
	Midpoints Midpoints

	// WidthCM is the distance between the left and right midpoints,
	// HeightCM between top and bottom. Floored to one decimal.
	WidthCM  float32
	HeightCM float32

	// Distance is the assumed camera distance used for the reconstruction (m).
	Distance float32
}

// WidthLabel formats the width the way the overlay shows it.
func (r Result) WidthLabel() string {
	return fmt.Sprintf("%.1f cm", r.WidthCM)
}

// HeightLabel formats the height the way the overlay shows it.
func (r Result) HeightLabel() string {
	return fmt.Sprintf("%.1f cm", r.HeightCM)
}

// Reading is the latest center distance and heading, for the distance label.
type Reading struct {
	DistanceMeters float32
	HeadingDegrees float32
}

// DistanceCM returns the distance in centimeters rounded to two decimals.
// Unlike the box sizes this rounds rather than floors.
func (r Reading) DistanceCM() float32 {
	return float32(math.Round(float64(r.DistanceMeters)*10000) / 100)
}

// DistanceLabel formats the distance the way the overlay shows it.
func (r Reading) DistanceLabel() string {
	return fmt.Sprintf("%.2f cm", r.DistanceCM())
}

// toCentimeters converts meters to centimeters floored to one decimal.
func toCentimeters(m float32) float32 {
	return float32(math.Floor(float64(m*1000))) / 10
}

func toR3(v mgl32.Vec3) r3.Vector {
	return r3.Vector{X: float64(v.X()), Y: float64(v.Y()), Z: float64(v.Z())}
}
