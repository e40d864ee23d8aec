package gstmedia

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/john-rocky/ObjectMeasurement/modules/recorder"
)

// audioSink captures microphone audio to an AAC .m4a file.
type audioSink struct {
	path    string
	logger  *slog.Logger
	factory *Factory

	pipeline *gst.Pipeline
	bus      *busWatcher

	started atomic.Bool
	stopped atomic.Bool
}

func newAudioSink(f *Factory, spec recorder.AudioSpec, path string) (*audioSink, error) {
	logger := f.logger.With("session_id", spec.SessionID, "sink", "audio")

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create pipeline: %w", err)
	}

	source, err := gst.NewElement(f.cfg.AudioSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", recorder.ErrNoCaptureDevice, f.cfg.AudioSource, err)
	}
	if f.cfg.AudioDevice != "" {
		source.SetProperty("device", f.cfg.AudioDevice)
	}
	if f.cfg.AudioSource == "audiotestsrc" {
		source.SetProperty("is-live", true)
		source.SetProperty("wave", 4) // silence
	}

	convert, err := gst.NewElement("audioconvert")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create audioconvert: %w", err)
	}
	resample, err := gst.NewElement("audioresample")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create audioresample: %w", err)
	}
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(rawAudioCaps(spec.SampleRate, spec.Channels)))

	encoder, err := newAACEncoder(f.cfg.AudioBitrate, logger)
	if err != nil {
		return nil, err
	}
	parse, err := gst.NewElement("aacparse")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create aacparse: %w", err)
	}
	mux, err := gst.NewElement("mp4mux")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create mp4mux: %w", err)
	}
	sink, err := gst.NewElement("filesink")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create filesink: %w", err)
	}
	sink.SetProperty("location", path)

	chain := []*gst.Element{source, convert, resample, capsfilter, encoder, parse, mux, sink}
	if err := pipeline.AddMany(chain...); err != nil {
		return nil, fmt.Errorf("gstmedia: failed to add audio elements: %w", err)
	}
	if err := gst.ElementLinkMany(chain...); err != nil {
		return nil, fmt.Errorf("gstmedia: failed to link audio pipeline: %w", err)
	}

	a := &audioSink{
		path:     path,
		logger:   logger,
		factory:  f,
		pipeline: pipeline,
	}
	a.bus = watchBus(pipeline, "audio", logger, &f.errors)

	// Sources open their device on the way to READY; failing here means
	// there is nothing to record from.
	if err := pipeline.SetState(gst.StateReady); err != nil {
		a.teardown()
		return nil, fmt.Errorf("%w: %s: %v", recorder.ErrNoCaptureDevice, f.cfg.AudioSource, err)
	}

	logger.Debug("gstmedia: audio sink ready", "path", path, "source", f.cfg.AudioSource)
	return a, nil
}

// Start implements recorder.AudioSink.
func (a *audioSink) Start() error {
	if !a.started.CompareAndSwap(false, true) {
		return nil
	}
	if err := a.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("gstmedia: failed to start audio pipeline: %w", err)
	}
	a.logger.Info("gstmedia: audio capture started", "path", a.path)
	return nil
}

// Stop implements recorder.AudioSink. Sends EOS through the capture chain
// and returns once the file is closed. Idempotent.
func (a *audioSink) Stop() error {
	if !a.stopped.CompareAndSwap(false, true) {
		return nil
	}
	defer a.teardown()

	if !a.started.Load() {
		return nil
	}
	if err := a.bus.Err(); err != nil {
		return err
	}

	if !a.pipeline.SendEvent(gst.NewEOSEvent()) {
		return fmt.Errorf("gstmedia: audio pipeline rejected end of stream")
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.factory.cfg.StopTimeout)
	defer cancel()
	if err := a.bus.WaitEOS(ctx); err != nil {
		return err
	}

	a.logger.Info("gstmedia: audio capture stopped", "path", a.path)
	return nil
}

func (a *audioSink) teardown() {
	a.bus.Stop()
	if err := a.pipeline.SetState(gst.StateNull); err != nil {
		a.logger.Error("gstmedia: failed to stop audio pipeline", "error", err)
	}
}

// Path implements recorder.AudioSink.
func (a *audioSink) Path() string { return a.path }
