package measurement

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

// SurfaceRaycaster finds the first estimated surface under a viewport pixel.
// Implemented by the AR runtime; hit is in world space.
type SurfaceRaycaster interface {
	Raycast(pose CameraPose, viewport arframe.Size, pixel mgl32.Vec2) (hit mgl32.Vec3, ok bool)
}

// PoseSampler reads the scene distance at the viewport center.
//
// The depth map is preferred. Frames without one fall back to a surface
// raycast when a raycaster is configured.
type PoseSampler struct {
	raycaster SurfaceRaycaster
}

// NewPoseSampler returns a sampler. raycaster may be nil.
func NewPoseSampler(raycaster SurfaceRaycaster) *PoseSampler {
	return &PoseSampler{raycaster: raycaster}
}

// Sample returns the center distance for frame.
func (s *PoseSampler) Sample(frame arframe.Frame) (DepthSample, bool) {
	vp := frame.Camera.Viewport
	center := mgl32.Vec2{float32(vp.Width) / 2, float32(vp.Height) / 2}

	if d := frame.Depth; d != nil {
		if meters, ok := d.At(d.Width/2, d.Height/2); ok {
			return DepthSample{Pixel: center, Meters: meters}, true
		}
	}

	if s.raycaster == nil || vp.Empty() {
		return DepthSample{}, false
	}

	pose := PoseFromCamera(frame.Camera)
	hit, ok := s.raycaster.Raycast(pose, vp, center)
	if !ok {
		return DepthSample{}, false
	}
	dist := hit.Sub(pose.Position()).Len()
	if !(dist > 0) {
		return DepthSample{}, false
	}
	return DepthSample{Pixel: center, Meters: dist}, true
}

// PlaneRaycaster intersects the center ray with a fixed world plane. Useful
// when no AR runtime is attached (harness, tests).
type PlaneRaycaster struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// Raycast implements SurfaceRaycaster.
func (p PlaneRaycaster) Raycast(pose CameraPose, viewport arframe.Size, pixel mgl32.Vec2) (mgl32.Vec3, bool) {
	u, err := NewUnprojector(pose, viewport)
	if err != nil {
		return mgl32.Vec3{}, false
	}
	near, err := u.Unproject(pixel, 0)
	if err != nil {
		return mgl32.Vec3{}, false
	}
	origin := pose.Position()
	dir := near.Sub(origin).Normalize()

	denom := p.Normal.Dot(dir)
	if denom > -1e-6 && denom < 1e-6 {
		return mgl32.Vec3{}, false
	}
	t := p.Point.Sub(origin).Dot(p.Normal) / denom
	if t <= 0 {
		return mgl32.Vec3{}, false
	}
	return origin.Add(dir.Mul(t)), true
}
