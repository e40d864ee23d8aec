package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/john-rocky/ObjectMeasurement/internal/config"
	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
	"github.com/john-rocky/ObjectMeasurement/modules/capture"
	"github.com/john-rocky/ObjectMeasurement/modules/framebus"
	"github.com/john-rocky/ObjectMeasurement/modules/measurement"
	"github.com/john-rocky/ObjectMeasurement/modules/overlay"
	"github.com/john-rocky/ObjectMeasurement/modules/recorder"
	"github.com/john-rocky/ObjectMeasurement/modules/recorder/gstmedia"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	duration := flag.Duration("duration", 10*time.Second, "Recording length")
	debug := flag.Bool("debug", false, "Enable debug logging")
	logFile := flag.String("log-file", "", "Also write logs to this file (rotated)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("scene-record %s\n", version)
		os.Exit(0)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	logger, closer := setupLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File, *debug)
	defer closer.Close()

	if err := run(cfg, *duration, logger); err != nil {
		logger.Error("scene-record failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, duration time.Duration, logger *slog.Logger) error {
	rec, factory, err := newRecorder(cfg, logger)
	if err != nil {
		return err
	}

	source, err := capture.ParseSourceKind(cfg.Capture.Source)
	if err != nil {
		return err
	}
	stream, err := capture.New(capture.Config{
		Source: source,
		Device: cfg.Capture.Device,
		URL:    cfg.Capture.URL,
		Width:  cfg.Capture.Width,
		Height: cfg.Capture.Height,
		FPS:    cfg.Capture.FPS,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create capture stream: %w", err)
	}

	viewport := arframe.Size{Width: cfg.Capture.Width, Height: cfg.Capture.Height}
	world := newScene(cfg, viewport)
	engine := measurement.NewEngine(measurement.EngineConfig{
		Sampler: measurement.NewPoseSampler(world.raycaster),
		Logger:  logger,
	})
	detector := measurement.StaticDetector{Box: world.box}
	renderer := &logRenderer{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go logEvents(ctx, rec, logger)

	frames, err := stream.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer stream.Stop()

	recording := true
	if err := rec.Start(ctx); err != nil {
		if !errors.Is(err, recorder.ErrRecordingDisabled) {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		logger.Warn("recording disabled, measuring only")
		recording = false
	}

	bus := framebus.New()
	measureCh := make(chan arframe.Frame, 2)
	recordCh := make(chan arframe.Frame, 4)
	if err := bus.Subscribe("measure", measureCh); err != nil {
		return err
	}
	if err := bus.Subscribe("record", recordCh); err != nil {
		return err
	}

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		for frame := range measureCh {
			det, err := detector.Detect(frame)
			if err != nil {
				logger.Warn("detector failed", "error", err, "trace_id", frame.TraceID)
			}
			res, err := engine.Process(frame, det)
			overlay.Present(renderer, res, err)
		}
	}()
	go func() {
		defer workers.Done()
		for frame := range recordCh {
			rec.Publish(frame)
		}
	}()

	fmt.Printf("Recording for %s (Ctrl+C to stop early)...\n", duration)
	timer := time.NewTimer(duration)
	defer timer.Stop()

loop:
	for {
		select {
		case <-sigChan:
			fmt.Printf("\nReceived interrupt signal, stopping...\n")
			break loop
		case <-timer.C:
			break loop
		case frame, ok := <-frames:
			if !ok {
				logger.Warn("Frame channel closed unexpectedly")
				break loop
			}
			world.decorate(&frame)
			bus.Publish(frame)
		}
	}

	busStats := bus.Stats()
	bus.Close()
	close(measureCh)
	close(recordCh)
	workers.Wait()
	logger.Info("frame bus closed",
		"published", busStats.TotalPublished,
		"dropped", busStats.TotalDropped,
	)

	if !recording {
		printSummary(rec.Stats(), stream.Stats(), engine, factory.Errors(), "")
		return nil
	}

	type outcome struct {
		path string
		err  error
	}
	done := make(chan outcome, 1)
	if !rec.Stop(func(path string, err error) { done <- outcome{path, err} }) {
		return fmt.Errorf("recorder was not recording (state %s)", rec.State())
	}

	wait := recordingWait(cfg)
	var out outcome
	select {
	case out = <-done:
	case <-time.After(wait):
		return fmt.Errorf("recorder did not finish within %s", wait)
	}

	printSummary(rec.Stats(), stream.Stats(), engine, factory.Errors(), out.path)
	return out.err
}

func newRecorder(cfg *config.Config, logger *slog.Logger) (*recorder.Recorder, *gstmedia.Factory, error) {
	rc := cfg.Recording

	aspect, err := recorder.ParseAspectMode(rc.Aspect)
	if err != nil {
		return nil, nil, err
	}
	accel, err := gstmedia.ParseHardwareAccel(rc.Accel)
	if err != nil {
		return nil, nil, err
	}

	var watermark image.Image
	if rc.Watermark != "" {
		watermark, err = loadPNG(rc.Watermark)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load watermark: %w", err)
		}
	}

	storage, err := recorder.NewDirStorage(rc.OutputDir)
	if err != nil {
		return nil, nil, err
	}

	factory, err := gstmedia.New(gstmedia.Config{
		Accel:        accel,
		VideoBitrate: rc.VideoBitrateKbps,
		AudioSource:  rc.AudioSource,
		AudioDevice:  rc.AudioDevice,
		Storage:      storage,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}

	rec, err := recorder.New(recorder.Config{
		FPS:             rc.FPS,
		VideoSize:       arframe.Size{Width: rc.Width, Height: rc.Height},
		Rotation:        recorder.Rotation(rc.Rotation),
		Aspect:          aspect,
		Watermark:       watermark,
		PoolSize:        rc.PoolSize,
		Audio:           rc.Audio,
		Disabled:        !rc.RecordingEnabled(),
		FinalizeTimeout: time.Duration(rc.FinalizeTimeoutS) * time.Second,
		MergeTimeout:    time.Duration(rc.MergeTimeoutS) * time.Second,
		Logger:          logger,
	}, factory, factory)
	if err != nil {
		return nil, nil, err
	}
	return rec, factory, nil
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

func logEvents(ctx context.Context, rec *recorder.Recorder, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-rec.Events():
			attrs := []any{"kind", ev.Kind.String(), "session_id", ev.SessionID}
			if ev.Path != "" {
				attrs = append(attrs, "path", ev.Path)
			}
			if ev.Err != nil {
				attrs = append(attrs, "error", ev.Err)
				logger.Warn("recording event", attrs...)
				continue
			}
			logger.Info("recording event", attrs...)
		}
	}
}

// logRenderer stands in for an on-screen overlay.
type logRenderer struct {
	logger  *slog.Logger
	visible bool
}

func (r *logRenderer) Render(o overlay.Overlay) {
	r.visible = true
	r.logger.Debug("measurement",
		"title", o.Title,
		"width", o.Width.Label,
		"height", o.Height.Label,
	)
}

func (r *logRenderer) Hide() {
	if r.visible {
		r.logger.Debug("measurement hidden")
	}
	r.visible = false
}

func printSummary(rs recorder.Stats, cs capture.Stats, engine *measurement.Engine, errs gstmedia.ErrorStats, path string) {
	es := engine.Stats()

	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("                     Recording Summary                     \n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("  Frames Captured:    %d (%d dropped at source)\n", cs.FrameCount, cs.FramesDropped)
	fmt.Printf("  Frames Offered:     %d\n", rs.FramesOffered)
	fmt.Printf("  Frames Emitted:     %d\n", rs.FramesEmitted)
	fmt.Printf("  Frames Dropped:     %d (not ready %d, pool %d)\n",
		rs.FramesDropped, rs.DroppedNotReady, rs.DroppedPoolExhausted)
	fmt.Printf("  Duration:           %s\n", rs.LastPTS.Round(time.Millisecond))
	fmt.Printf("  Source FPS:         %.2f (stable %v)\n", rs.Source.FPSMean, rs.Source.IsStable)
	fmt.Printf("  Audio:              %v\n", rs.Audio)
	fmt.Printf("  Measurements:       %d (skipped %d)\n", es.Measured, es.Skipped)
	if reading, ok := engine.LastReading(); ok {
		fmt.Printf("  Last Distance:      %s, heading %.2f°\n", reading.DistanceLabel(), reading.HeadingDegrees)
	}
	if total := errs.Device + errs.Codec + errs.Negotiation + errs.Storage + errs.Unknown; total > 0 {
		fmt.Printf("  Pipeline Errors:    %d\n", total)
	}
	if path != "" {
		fmt.Printf("  Output:             %s\n", path)
	}
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
}
