package main

import (
	"image"
	"math"
	"testing"
	"time"

	"github.com/john-rocky/ObjectMeasurement/internal/config"
	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
	"github.com/john-rocky/ObjectMeasurement/modules/capture"
	"github.com/john-rocky/ObjectMeasurement/modules/measurement"
	"github.com/john-rocky/ObjectMeasurement/modules/recorder/gstmedia"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestSceneMeasuresWithPlane(t *testing.T) {
	cfg := defaultConfig(t)
	vp := arframe.Size{Width: 640, Height: 480}
	world := newScene(cfg, vp)
	if world.depth != nil {
		t.Fatal("default config should not build a depth map")
	}

	engine := measurement.NewEngine(measurement.EngineConfig{
		Sampler: measurement.NewPoseSampler(world.raycaster),
		Logger:  discardLogger(),
	})

	frame := arframe.Frame{Seq: 1, Image: image.NewRGBA(image.Rect(0, 0, 640, 480))}
	world.decorate(&frame)

	det, err := measurement.StaticDetector{Box: world.box}.Detect(frame)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	res, err := engine.Process(frame, det)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	reading, ok := engine.LastReading()
	if !ok || math.Abs(float64(reading.DistanceMeters)-1) > 1e-3 {
		t.Errorf("center distance = %v (ok=%v), want 1 m", reading.DistanceMeters, ok)
	}
	if res.WidthCM <= 0 || res.HeightCM <= 0 {
		t.Errorf("non-positive measurement %.1f x %.1f cm", res.WidthCM, res.HeightCM)
	}
	// Half of a 60 degree vertical view at 1 m spans 2*tan(30deg)/2 = 57.7 cm.
	if math.Abs(float64(res.HeightCM)-57.7) > 0.2 {
		t.Errorf("HeightCM = %.1f, want about 57.7", res.HeightCM)
	}
}

func TestSceneDepthMap(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Measurement.DepthM = 2
	cfg.Measurement.PlaneDistanceM = 0
	world := newScene(cfg, arframe.Size{Width: 640, Height: 480})

	if world.raycaster != nil {
		t.Error("raycaster built with plane distance 0")
	}
	var f arframe.Frame
	world.decorate(&f)
	if v, ok := f.Depth.At(32, 24); !ok || v != 2 {
		t.Errorf("depth at center = %v (ok=%v), want 2", v, ok)
	}
}

func TestRecordingWait(t *testing.T) {
	cfg := defaultConfig(t)
	if got, want := recordingWait(cfg), 45*time.Second; got != want {
		t.Errorf("recordingWait(defaults) = %v, want %v", got, want)
	}
	cfg.Recording.FinalizeTimeoutS = 2
	cfg.Recording.MergeTimeoutS = 3
	if got, want := recordingWait(cfg), 10*time.Second; got != want {
		t.Errorf("recordingWait = %v, want %v", got, want)
	}
}

func TestConfigEnumsMatchBackends(t *testing.T) {
	for _, s := range config.AccelModes {
		accel, err := gstmedia.ParseHardwareAccel(s)
		if err != nil || accel.String() != s {
			t.Errorf("accel %q: ParseHardwareAccel = (%v, %v)", s, accel, err)
		}
	}
	for _, s := range config.SourceKinds {
		kind, err := capture.ParseSourceKind(s)
		if err != nil || kind.String() != s {
			t.Errorf("source %q: ParseSourceKind = (%v, %v)", s, kind, err)
		}
	}

	cfg := defaultConfig(t)
	if cfg.Recording.VideoBitrateKbps != gstmedia.DefaultVideoBitrate {
		t.Errorf("config video bitrate %d, backend default %d", cfg.Recording.VideoBitrateKbps, gstmedia.DefaultVideoBitrate)
	}
	if cfg.Recording.AudioSource != gstmedia.DefaultAudioSource {
		t.Errorf("config audio source %q, backend default %q", cfg.Recording.AudioSource, gstmedia.DefaultAudioSource)
	}
}
