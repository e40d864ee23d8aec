package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

const (
	defaultDevice = "/dev/video0"
	defaultBuffer = 4
)

// ErrAlreadyStarted is returned by Start on a running stream.
var ErrAlreadyStarted = errors.New("capture: stream already started")

// Stream delivers live RGBA frames from a GStreamer source.
type Stream struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	elements *pipelineElements
	ctx      context.Context
	cancel   context.CancelFunc
	frames   chan arframe.Frame
	started  time.Time
	wg       sync.WaitGroup

	closed        atomic.Bool
	running       atomic.Bool
	frameCount    atomic.Uint64
	framesDropped atomic.Uint64
	lastFrameAt   atomic.Int64
	errorCount    atomic.Uint64
	reconnect     *reconnectState
}

// New validates cfg and checks that GStreamer is usable. It does not
// open the source.
func New(cfg Config) (*Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := checkGStreamer(); err != nil {
		return nil, fmt.Errorf("capture: GStreamer not available: %w", err)
	}

	cfg.Logger.Info("capture: stream created",
		"source", cfg.Source.String(),
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"fps", cfg.FPS,
	)

	return &Stream{
		cfg:       cfg,
		logger:    cfg.Logger,
		reconnect: &reconnectState{},
	}, nil
}

func (c *Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("capture: invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.FPS < 1 || c.FPS > 120 {
		return fmt.Errorf("capture: fps must be between 1 and 120, got %d", c.FPS)
	}
	switch c.Source {
	case SourceTest:
	case SourceV4L2:
		if c.Device == "" {
			c.Device = defaultDevice
		}
	case SourceRTSP:
		if c.URL == "" {
			return fmt.Errorf("capture: rtsp source requires a URL")
		}
	default:
		return fmt.Errorf("capture: invalid source %s", c.Source)
	}
	if c.Buffer < 0 {
		return fmt.Errorf("capture: buffer must be >= 0, got %d", c.Buffer)
	}
	if c.Buffer == 0 {
		c.Buffer = defaultBuffer
	}
	if c.Reconnect == (ReconnectConfig{}) {
		c.Reconnect = DefaultReconnectConfig()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

func checkGStreamer() error {
	gst.Init(nil)
	if _, err := gst.NewElement("fakesrc"); err != nil {
		return fmt.Errorf("GStreamer core plugins missing: %w", err)
	}
	return nil
}

// Start opens the source and returns the frame channel.
//
// Startup sequence:
//  1. Derives a cancellable context and allocates the frame channel
//  2. Builds the pipeline and sets it PLAYING
//  3. Starts the monitor goroutine, which owns reconnection
//
// Frames are dropped (and counted) when the consumer falls behind; the
// channel is only closed by Stop, never by a pipeline failure. Returns
// ErrAlreadyStarted if the stream is running.
func (s *Stream) Start(ctx context.Context) (<-chan arframe.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.frames = make(chan arframe.Frame, s.cfg.Buffer)
	s.closed.Store(false)
	s.started = time.Now()
	s.reconnect.reset()

	if err := s.buildLocked(); err != nil {
		s.cancel()
		s.cancel = nil
		s.ctx = nil
		return nil, fmt.Errorf("capture: failed to start pipeline: %w", err)
	}

	s.wg.Add(1)
	go s.runPipeline(s.ctx)

	s.logger.Info("capture: stream started",
		"source", s.cfg.Source.String(),
		"note", "frames arrive once the pipeline reaches PLAYING",
	)
	return s.frames, nil
}

// buildLocked creates the pipeline and sets it PLAYING. Caller holds mu.
func (s *Stream) buildLocked() error {
	els, err := createPipeline(s.cfg, s.logger)
	if err != nil {
		return err
	}

	cbCtx := &callbackContext{
		frames:        s.frames,
		closed:        &s.closed,
		frameCounter:  &s.frameCount,
		framesDropped: &s.framesDropped,
		lastFrameAt:   &s.lastFrameAt,
		started:       s.started,
		width:         s.cfg.Width,
		height:        s.cfg.Height,
		logger:        s.logger,
	}
	els.appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return onNewSample(sink, cbCtx)
		},
	})

	if els.rtspsrc != nil {
		depay := els.depay
		els.rtspsrc.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
			onPadAdded(srcPad, depay, s.logger)
		})
	}

	if err := els.pipeline.SetState(gst.StatePlaying); err != nil {
		_ = destroyPipeline(els)
		return fmt.Errorf("failed to set PLAYING: %w", err)
	}
	s.elements = els
	return nil
}

// rebuild replaces a failed pipeline with a fresh one. A no-op once the
// stream is stopping.
func (s *Stream) rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil || s.ctx.Err() != nil {
		return nil
	}
	if err := destroyPipeline(s.elements); err != nil {
		s.logger.Warn("capture: failed to destroy pipeline before rebuild", "error", err)
	}
	s.elements = nil
	return s.buildLocked()
}

func (s *Stream) runPipeline(ctx context.Context) {
	defer s.wg.Done()
	defer s.running.Store(false)

	err := runWithReconnect(ctx, s.cfg.Reconnect, s.reconnect, s.logger, s.monitorPipeline, s.rebuild)
	if err != nil {
		s.logger.Error("capture: pipeline stopped after reconnection failure",
			"error", err,
			"source", s.cfg.Source.String(),
			"uptime", time.Since(s.started),
			"frames_processed", s.frameCount.Load(),
			"reconnects", s.reconnect.total.Load(),
		)
	}
}

// monitorPipeline polls the pipeline bus every 50ms until something ends
// the current pipeline.
//
// Message handling:
//   - EOS: returns an error so the source is reopened (live sources do not end)
//   - Error: counts it, logs the GStreamer debug string and returns an error
//   - StateChanged to PLAYING: marks the stream running and resets the
//     consecutive failure count
//
// Returns nil when ctx is cancelled.
func (s *Stream) monitorPipeline(ctx context.Context) error {
	s.mu.RLock()
	els := s.elements
	s.mu.RUnlock()
	if els == nil || els.pipeline == nil {
		return fmt.Errorf("pipeline not initialized")
	}

	bus := els.pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			s.running.Store(false)
			s.logger.Info("capture: end of stream received",
				"uptime", time.Since(s.started),
				"frames_processed", s.frameCount.Load(),
			)
			return fmt.Errorf("end of stream")

		case gst.MessageError:
			s.running.Store(false)
			s.errorCount.Add(1)
			gerr := msg.ParseError()
			s.logger.Error("capture: pipeline error",
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"source", s.cfg.Source.String(),
				"frames_processed", s.frameCount.Load(),
			)
			return fmt.Errorf("pipeline error: %s", gerr.Error())

		case gst.MessageStateChanged:
			if msg.Source() == els.pipeline.GetName() {
				old, new := msg.ParseStateChanged()
				s.logger.Debug("capture: pipeline state changed", "from", old, "to", new)
				if new == gst.StatePlaying {
					s.running.Store(true)
					s.reconnect.reset()
				}
			}
		}
	}
}

// Stop shuts the pipeline down and closes the frame channel.
//
// Shutdown sequence:
//  1. Cancels the context so the monitor and any backoff wait return
//  2. Waits up to 3s for the monitor goroutine
//  3. Sets the pipeline to NULL and releases it
//  4. Closes the frame channel (once, guarded by the closed flag so
//     in-flight callbacks never send on a closed channel)
//
// Idempotent: calling Stop on a stopped stream returns nil.
func (s *Stream) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		s.logger.Debug("capture: stream not started, nothing to stop")
		return nil
	}
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		s.logger.Warn("capture: stop timeout exceeded, monitor may still be running")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.elements != nil {
		if derr := destroyPipeline(s.elements); derr != nil {
			err = fmt.Errorf("capture: %w", derr)
		}
		s.elements = nil
	}

	if s.closed.CompareAndSwap(false, true) {
		close(s.frames)
	}

	s.logger.Info("capture: stream stopped",
		"frames_captured", s.frameCount.Load(),
		"frames_dropped", s.framesDropped.Load(),
		"reconnects", s.reconnect.total.Load(),
		"uptime", time.Since(s.started),
	)

	s.cancel = nil
	s.ctx = nil
	s.running.Store(false)
	return err
}

// Stats returns a snapshot. Safe for concurrent use.
func (s *Stream) Stats() Stats {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	frames := s.frameCount.Load()
	dropped := s.framesDropped.Load()

	var fpsReal float64
	var uptime time.Duration
	if !started.IsZero() {
		uptime = time.Since(started)
		if uptime > 0 {
			fpsReal = float64(frames) / uptime.Seconds()
		}
	}

	var dropRate float64
	if total := frames + dropped; total > 0 {
		dropRate = float64(dropped) / float64(total) * 100.0
	}

	var latencyMS int64
	if last := s.lastFrameAt.Load(); last != 0 {
		latencyMS = time.Since(time.Unix(0, last)).Milliseconds()
	}

	return Stats{
		FrameCount:    frames,
		FramesDropped: dropped,
		DropRate:      dropRate,
		FPSTarget:     s.cfg.FPS,
		FPSReal:       fpsReal,
		LatencyMS:     latencyMS,
		Resolution:    fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		Source:        s.cfg.Source.String(),
		IsRunning:     s.running.Load(),
		Errors:        s.errorCount.Load(),
		Reconnects:    s.reconnect.total.Load(),
		Uptime:        uptime,
	}
}
