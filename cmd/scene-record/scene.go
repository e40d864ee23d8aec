package main

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/john-rocky/ObjectMeasurement/internal/config"
	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
	"github.com/john-rocky/ObjectMeasurement/modules/measurement"
	"github.com/john-rocky/ObjectMeasurement/modules/recorder"
)

// scene supplies the pose and depth a live AR runtime would attach to
// each captured frame: a fixed camera, an optional constant depth map and
// an optional plane facing the camera.
type scene struct {
	camera    arframe.Camera
	depth     *arframe.DepthMap
	raycaster measurement.SurfaceRaycaster
	box       measurement.DetectionBox
}

func newScene(cfg *config.Config, viewport arframe.Size) *scene {
	eye := mgl32.Vec3(cfg.Camera.Position)
	target := mgl32.Vec3(cfg.Camera.Target)

	s := &scene{
		camera: arframe.NewPerspectiveCamera(eye, target, cfg.Camera.FOVYDegrees, viewport),
		box: measurement.DetectionBox{
			MinX:       cfg.Measurement.Detector.MinX,
			MinY:       cfg.Measurement.Detector.MinY,
			MaxX:       cfg.Measurement.Detector.MaxX,
			MaxY:       cfg.Measurement.Detector.MaxY,
			Label:      cfg.Measurement.Detector.Label,
			Confidence: cfg.Measurement.Detector.Confidence,
		},
	}

	if d := cfg.Measurement.DepthM; d > 0 {
		s.depth = arframe.NewDepthMap(64, 48)
		s.depth.Fill(d)
	}
	if d := cfg.Measurement.PlaneDistanceM; d > 0 {
		forward := target.Sub(eye).Normalize()
		s.raycaster = measurement.PlaneRaycaster{
			Point:  eye.Add(forward.Mul(d)),
			Normal: forward.Mul(-1),
		}
	}
	return s
}

// decorate attaches the scene's camera and depth to a captured frame.
func (s *scene) decorate(f *arframe.Frame) {
	f.Camera = s.camera
	f.Depth = s.depth
}

// recordingWait bounds how long the harness waits for Stop to complete.
func recordingWait(cfg *config.Config) time.Duration {
	finalize := recorder.DefaultFinalizeTimeout
	if t := cfg.Recording.FinalizeTimeoutS; t > 0 {
		finalize = time.Duration(t) * time.Second
	}
	merge := recorder.DefaultMergeTimeout
	if t := cfg.Recording.MergeTimeoutS; t > 0 {
		merge = time.Duration(t) * time.Second
	}
	return finalize + merge + 5*time.Second
}
