// Package arframe defines the per-frame data a live AR session hands to the
// measurement and recording pipelines.
//
// A Frame bundles the captured camera image with the pose and depth that were
// valid when the image was taken. Producers (the capture module, a test fixture,
// an AR runtime bridge) fill it once; consumers treat it as read-only.
package arframe

import (
	"image"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Size is a viewport or buffer size in pixels.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Camera is the camera state for one frame.
//
// View maps world coordinates to camera coordinates (the inverse of the camera
// transform). Projection maps camera coordinates to clip space using the
// OpenGL convention (camera looks down -Z). Viewport is the screen the
// projection was computed for.
type Camera struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Viewport   Size
}

// Transform returns the camera-to-world transform.
func (c Camera) Transform() mgl32.Mat4 {
	return c.View.Inv()
}

// Near and far clip planes used by NewPerspectiveCamera, in meters.
const (
	NearClip float32 = 0.01
	FarClip  float32 = 100
)

// NewPerspectiveCamera places a camera at eye looking at target (Y up) with
// the given vertical field of view in degrees.
func NewPerspectiveCamera(eye, target mgl32.Vec3, fovYDegrees float32, viewport Size) Camera {
	aspect := float32(1)
	if !viewport.Empty() {
		aspect = float32(viewport.Width) / float32(viewport.Height)
	}
	return Camera{
		View:       mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0}),
		Projection: mgl32.Perspective(mgl32.DegToRad(fovYDegrees), aspect, NearClip, FarClip),
		Viewport:   viewport,
	}
}

// Frame is one captured camera frame.
type Frame struct {
	// Seq is the producer's sequence number (monotonic per source).
	Seq uint64

	// Timestamp is the source media time of the frame.
	Timestamp time.Duration

	// Image is the captured camera image in sensor orientation.
	Image image.Image

	// Camera is the pose and projection valid for Image.
	Camera Camera

	// Depth is the scene depth map, nil when the device has no depth sensor.
	Depth *DepthMap

	// TraceID correlates log lines for this frame across modules.
	TraceID string
}

// DepthMap is a row-major depth image in meters.
type DepthMap struct {
	Width  int
	Height int
	Stride int // elements per row, >= Width
	Data   []float32
}

// NewDepthMap allocates a depth map filled with zeros.
func NewDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		Width:  width,
		Height: height,
		Stride: width,
		Data:   make([]float32, width*height),
	}
}

// At returns the depth at (x, y) and false when the coordinate is outside the
// map or the stored value is not a usable distance.
func (d *DepthMap) At(x, y int) (float32, bool) {
	if d == nil || x < 0 || y < 0 || x >= d.Width || y >= d.Height {
		return 0, false
	}
	i := y*d.Stride + x
	if i >= len(d.Data) {
		return 0, false
	}
	v := d.Data[i]
	if v <= 0 || v != v {
		return 0, false
	}
	return v, true
}

// Set stores v at (x, y). Out of range coordinates are ignored.
func (d *DepthMap) Set(x, y int, v float32) {
	if d == nil || x < 0 || y < 0 || x >= d.Width || y >= d.Height {
		return
	}
	d.Data[y*d.Stride+x] = v
}

// Fill sets every sample to v.
func (d *DepthMap) Fill(v float32) {
	for i := range d.Data {
		d.Data[i] = v
	}
}
