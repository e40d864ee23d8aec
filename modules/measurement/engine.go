package measurement

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Sampler provides the center distance. Defaults to a depth-only sampler.
	Sampler *PoseSampler

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine reconstructs detection boxes in world space.
//
// It owns the "last distance" state: every successful center sample updates
// it and Measure calls made through Process use it as the assumed distance.
type Engine struct {
	sampler *PoseSampler
	logger  *slog.Logger

	mu   sync.Mutex
	last Reading
	have bool

	measured atomic.Uint64
	skipped  atomic.Uint64
}

// EngineStats counts outcomes since construction.
type EngineStats struct {
	Measured uint64
	Skipped  uint64
}

// NewEngine returns an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Sampler == nil {
		cfg.Sampler = NewPoseSampler(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{sampler: cfg.Sampler, logger: cfg.Logger}
}

// Process samples the center distance of frame and measures det with it.
func (e *Engine) Process(frame arframe.Frame, det *DetectionBox) (Result, error) {
	pose := PoseFromCamera(frame.Camera)

	sample, ok := e.sampler.Sample(frame)
	if !ok {
		e.skipped.Add(1)
		e.logger.Debug("measurement: no center sample",
			"trace_id", frame.TraceID,
			"has_depth", frame.Depth != nil,
		)
		return Result{}, ErrNoDepth
	}

	e.mu.Lock()
	e.last = Reading{DistanceMeters: sample.Meters, HeadingDegrees: pose.HeadingDegrees()}
	e.have = true
	e.mu.Unlock()

	res, err := e.Measure(det, pose, sample.Meters, frame.Camera.Viewport)
	if err != nil {
		e.logger.Debug("measurement: frame skipped",
			"trace_id", frame.TraceID,
			"error", err,
		)
	}
	return res, err
}

// LastReading returns the most recent center distance and heading.
func (e *Engine) LastReading() (Reading, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.have
}

// Stats returns outcome counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{Measured: e.measured.Load(), Skipped: e.skipped.Load()}
}

// Measure reconstructs det at assumedDistance in front of the camera.
//
// Algorithm:
//  1. Convert the normalized box to viewport pixels (vertical flip).
//  2. Project a point assumedDistance ahead of the camera to get the window depth.
//  3. Unproject each corner at that depth.
//  4. Edge midpoints are the mean of the two corners of each edge.
//  5. Width is |left-right|, height is |top-bottom|, floored to 0.1 cm.
func (e *Engine) Measure(det *DetectionBox, pose CameraPose, assumedDistance float32, viewport arframe.Size) (Result, error) {
	res, err := measure(det, pose, assumedDistance, viewport)
	if err != nil {
		e.skipped.Add(1)
		return Result{}, err
	}
	e.measured.Add(1)
	return res, nil
}

func measure(det *DetectionBox, pose CameraPose, assumedDistance float32, viewport arframe.Size) (Result, error) {
	if det == nil {
		return Result{}, ErrNoDetection
	}
	if err := det.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNoDetection, err)
	}
	if !(assumedDistance > 0) {
		return Result{}, ErrNoDepth
	}

	u, err := NewUnprojector(pose, viewport)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	z, err := u.ScreenDepth(assumedDistance)
	if err != nil {
		return Result{}, err
	}

	var world [4]mgl32.Vec3
	for i, px := range det.ToViewport(viewport) {
		p, err := u.Unproject(px, z)
		if err != nil {
			return Result{}, err
		}
		world[i] = p
	}

	top := mid(world[TopLeft], world[TopRight])
	bottom := mid(world[BottomLeft], world[BottomRight])
	left := mid(world[TopLeft], world[BottomLeft])
	right := mid(world[TopRight], world[BottomRight])

	res := Result{
		Label:      det.Label,
		Confidence: det.Confidence,
		Midpoints: Midpoints{
			Top:    toR3(top),
			Bottom: toR3(bottom),
			Left:   toR3(left),
			Right:  toR3(right),
		},
		WidthCM:  toCentimeters(left.Sub(right).Len()),
		HeightCM: toCentimeters(top.Sub(bottom).Len()),
		Distance: assumedDistance,
	}
	for i, p := range world {
		res.Corners[i] = toR3(p)
	}
	return res, nil
}

func mid(a, b mgl32.Vec3) mgl32.Vec3 {
	return a.Add(b).Mul(0.5)
}
