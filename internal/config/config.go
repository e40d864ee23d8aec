// Package config loads the scene-record harness configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete harness configuration.
type Config struct {
	Recording   RecordingConfig   `yaml:"recording"`
	Capture     CaptureConfig     `yaml:"capture"`
	Camera      CameraConfig      `yaml:"camera"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Log         LogConfig         `yaml:"log"`
}

// RecordingConfig contains recorder and encoder settings.
type RecordingConfig struct {
	// Enabled defaults to true.
	Enabled          *bool  `yaml:"enabled"`
	FPS              int    `yaml:"fps"`
	// Width and Height are the output size after rotation.
	Width            int    `yaml:"width"`
	Height           int    `yaml:"height"`
	// Rotation is 0, 90, 180 or 270.
	Rotation         int    `yaml:"rotation"`
	// Aspect is fill or fit.
	Aspect           string `yaml:"aspect"`
	// Watermark is an optional PNG path.
	Watermark        string `yaml:"watermark"`
	Audio            bool   `yaml:"audio"`
	OutputDir        string `yaml:"output_dir"`
	// Accel is auto, vaapi or software.
	Accel            string `yaml:"accel"`
	VideoBitrateKbps int    `yaml:"video_bitrate_kbps"`
	// AudioSource is a GStreamer element name.
	AudioSource      string `yaml:"audio_source"`
	AudioDevice      string `yaml:"audio_device"`
	PoolSize         int    `yaml:"pool_size"`
	FinalizeTimeoutS int    `yaml:"finalize_timeout_s"`
	MergeTimeoutS    int    `yaml:"merge_timeout_s"`
}

// CaptureConfig contains live source settings.
type CaptureConfig struct {
	Source string `yaml:"source"` // test, v4l2, rtsp
	Device string `yaml:"device"`
	URL    string `yaml:"url"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
}

// CameraConfig describes the static camera pose used for captured frames.
type CameraConfig struct {
	FOVYDegrees float32    `yaml:"fov_y_degrees"` // default: 60
	Position    [3]float32 `yaml:"position"`      // meters
	Target      [3]float32 `yaml:"target"`        // default: 1 m in front of position
}

// MeasurementConfig configures the static detector and depth source.
type MeasurementConfig struct {
	Detector DetectorConfig `yaml:"detector"`

	// DepthM fills a synthetic depth map. Zero disables it.
	DepthM float32 `yaml:"depth_m"`

	// PlaneDistanceM places a raycast plane facing the camera, used when
	// no depth map is available.
	PlaneDistanceM float32 `yaml:"plane_distance_m"`
}

// DetectorConfig is a fixed normalized box (bottom-left origin).
type DetectorConfig struct {
	Label      string  `yaml:"label"`
	Confidence float32 `yaml:"confidence"`
	MinX       float32 `yaml:"min_x"`
	MinY       float32 `yaml:"min_y"`
	MaxX       float32 `yaml:"max_x"`
	MaxY       float32 `yaml:"max_y"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	File   string `yaml:"file"`   // rotated with lumberjack when set
}

// Load reads a YAML file, applies SCENE_* environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// RecordingEnabled reports the effective enabled flag.
func (r RecordingConfig) RecordingEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}
