package config

import (
	"fmt"
	"slices"

	"github.com/john-rocky/ObjectMeasurement/modules/recorder"
)

// Accepted accel and capture source names. These must stay in step with
// gstmedia.ParseHardwareAccel and capture.ParseSourceKind.
var (
	AccelModes  = []string{"auto", "vaapi", "software"}
	SourceKinds = []string{"test", "v4l2", "rtsp"}
)

const (
	defaultVideoBitrateKbps = 4000
	defaultAudioSource      = "autoaudiosrc"
)

// Validate checks the configuration and fills defaults.
func Validate(cfg *Config) error {
	if err := validateRecording(&cfg.Recording); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	if err := validateCapture(&cfg.Capture); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := validateCamera(&cfg.Camera); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if err := validateMeasurement(&cfg.Measurement); err != nil {
		return fmt.Errorf("measurement: %w", err)
	}
	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func validateRecording(r *RecordingConfig) error {
	if r.FPS == 0 {
		r.FPS = 30
	}
	if r.FPS < 1 || r.FPS > 240 {
		return fmt.Errorf("fps must be between 1 and 240, got %d", r.FPS)
	}
	if r.Width == 0 && r.Height == 0 {
		r.Width, r.Height = 720, 1280
	}
	if r.Width <= 0 || r.Height <= 0 || r.Width%2 != 0 || r.Height%2 != 0 {
		return fmt.Errorf("size must be positive and even, got %dx%d", r.Width, r.Height)
	}
	if !recorder.Rotation(r.Rotation).Valid() {
		return fmt.Errorf("rotation must be 0, 90, 180 or 270, got %d", r.Rotation)
	}
	if _, err := recorder.ParseAspectMode(r.Aspect); err != nil {
		return err
	}
	if r.Accel == "" {
		r.Accel = "auto"
	}
	if !slices.Contains(AccelModes, r.Accel) {
		return fmt.Errorf("unknown accel %q (expected one of %v)", r.Accel, AccelModes)
	}
	if r.VideoBitrateKbps < 0 {
		return fmt.Errorf("video_bitrate_kbps must be >= 0")
	}
	if r.VideoBitrateKbps == 0 {
		r.VideoBitrateKbps = defaultVideoBitrateKbps
	}
	if r.AudioSource == "" {
		r.AudioSource = defaultAudioSource
	}
	if r.PoolSize < 0 {
		return fmt.Errorf("pool_size must be >= 0")
	}
	if r.FinalizeTimeoutS < 0 || r.MergeTimeoutS < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}

func validateCapture(c *CaptureConfig) error {
	if c.Source == "" {
		c.Source = "test"
	}
	if !slices.Contains(SourceKinds, c.Source) {
		return fmt.Errorf("unknown source %q (expected one of %v)", c.Source, SourceKinds)
	}
	if c.Source == "rtsp" && c.URL == "" {
		return fmt.Errorf("url is required for rtsp source")
	}
	if c.Width == 0 && c.Height == 0 {
		c.Width, c.Height = 1280, 720
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.FPS == 0 {
		c.FPS = 30
	}
	if c.FPS < 1 || c.FPS > 120 {
		return fmt.Errorf("fps must be between 1 and 120, got %d", c.FPS)
	}
	return nil
}

func validateCamera(c *CameraConfig) error {
	if c.FOVYDegrees == 0 {
		c.FOVYDegrees = 60
	}
	if c.FOVYDegrees <= 0 || c.FOVYDegrees >= 180 {
		return fmt.Errorf("fov_y_degrees must be in (0, 180), got %v", c.FOVYDegrees)
	}
	if c.Target == c.Position {
		c.Target = c.Position
		c.Target[2] -= 1
	}
	return nil
}

func validateMeasurement(m *MeasurementConfig) error {
	d := &m.Detector
	if d.MinX == 0 && d.MinY == 0 && d.MaxX == 0 && d.MaxY == 0 {
		d.MinX, d.MinY, d.MaxX, d.MaxY = 0.25, 0.25, 0.75, 0.75
	}
	if d.Label == "" {
		d.Label = "object"
	}
	if d.Confidence == 0 {
		d.Confidence = 1
	}
	if d.MinX < 0 || d.MinY < 0 || d.MaxX > 1 || d.MaxY > 1 || d.MinX >= d.MaxX || d.MinY >= d.MaxY {
		return fmt.Errorf("detector box must satisfy 0 <= min < max <= 1, got (%v,%v)-(%v,%v)",
			d.MinX, d.MinY, d.MaxX, d.MaxY)
	}
	if m.DepthM < 0 || m.PlaneDistanceM < 0 {
		return fmt.Errorf("depth_m and plane_distance_m must be >= 0")
	}
	if m.DepthM == 0 && m.PlaneDistanceM == 0 {
		m.PlaneDistanceM = 1
	}
	return nil
}

func validateLog(l *LogConfig) error {
	switch l.Level {
	case "":
		l.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	switch l.Format {
	case "":
		l.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	return nil
}
