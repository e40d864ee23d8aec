package gstmedia

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/john-rocky/ObjectMeasurement/modules/recorder"
)

const (
	DefaultVideoBitrate = 4000   // kbps
	DefaultAudioBitrate = 128000 // bps
	DefaultAudioSource  = "autoaudiosrc"
	DefaultStopTimeout  = 5 * time.Second
)

// Config configures the GStreamer backends.
type Config struct {
	Accel HardwareAccel

	// VideoBitrate in kbps.
	VideoBitrate int

	// AudioSource is the capture element factory name (autoaudiosrc,
	// pulsesrc, alsasrc, audiotestsrc).
	AudioSource string

	// AudioDevice is passed as the source's "device" property when set.
	AudioDevice string

	// AudioBitrate in bps.
	AudioBitrate int

	// StopTimeout bounds how long the audio sink waits for its file to close.
	StopTimeout time.Duration

	// Storage hands out output paths. Required.
	Storage recorder.Storage

	Logger *slog.Logger
}

// Factory creates GStreamer sinks. It implements recorder.SinkFactory and
// recorder.Muxer.
type Factory struct {
	cfg    Config
	logger *slog.Logger
	errors ErrorCounters
}

// New validates cfg and checks that GStreamer is usable.
func New(cfg Config) (*Factory, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("gstmedia: storage is required")
	}
	if cfg.VideoBitrate < 0 || cfg.AudioBitrate < 0 {
		return nil, fmt.Errorf("gstmedia: bitrates must be >= 0")
	}
	if cfg.VideoBitrate == 0 {
		cfg.VideoBitrate = DefaultVideoBitrate
	}
	if cfg.AudioBitrate == 0 {
		cfg.AudioBitrate = DefaultAudioBitrate
	}
	if cfg.AudioSource == "" {
		cfg.AudioSource = DefaultAudioSource
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := checkGStreamerAvailable(); err != nil {
		return nil, fmt.Errorf("gstmedia: GStreamer not available: %w", err)
	}
	if cfg.Accel == AccelVAAPI {
		if err := checkVAAPIAvailable(); err != nil {
			return nil, fmt.Errorf("gstmedia: VAAPI not available: %w", err)
		}
	}

	cfg.Logger.Info("gstmedia: factory created",
		"acceleration", cfg.Accel.String(),
		"video_bitrate_kbps", cfg.VideoBitrate,
		"audio_source", cfg.AudioSource,
	)
	return &Factory{cfg: cfg, logger: cfg.Logger}, nil
}

// NewVideoSink implements recorder.SinkFactory.
func (f *Factory) NewVideoSink(ctx context.Context, spec recorder.VideoSpec) (recorder.VideoSink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.cfg.Storage.TempPath("video", ".mp4")
	if err != nil {
		return nil, err
	}
	return newVideoSink(f, spec, path)
}

// NewAudioSink implements recorder.SinkFactory.
func (f *Factory) NewAudioSink(ctx context.Context, spec recorder.AudioSpec) (recorder.AudioSink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.cfg.Storage.TempPath("audio", ".m4a")
	if err != nil {
		return nil, err
	}
	return newAudioSink(f, spec, path)
}

// Errors returns pipeline error counters across every sink and merge.
func (f *Factory) Errors() ErrorStats {
	return f.errors.Snapshot()
}
