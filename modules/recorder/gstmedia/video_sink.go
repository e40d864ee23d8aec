package gstmedia

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/john-rocky/ObjectMeasurement/modules/recorder"
)

// videoSink encodes RGBA pixel buffers to an H.264 MP4 file.
type videoSink struct {
	path   string
	spec   recorder.VideoSpec
	logger *slog.Logger

	pipeline *gst.Pipeline
	src      *app.Source
	bus      *busWatcher

	frameDuration time.Duration
	ready         atomic.Bool
	finalized     atomic.Bool
	frames        atomic.Uint64
	usingVAAPI    bool
}

func newVideoSink(f *Factory, spec recorder.VideoSpec, path string) (*videoSink, error) {
	logger := f.logger.With("session_id", spec.SessionID, "sink", "video")

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create pipeline: %w", err)
	}

	src, err := app.NewAppSrc()
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create appsrc: %w", err)
	}
	src.SetCaps(gst.NewCapsFromString(rawVideoCaps(spec.Size.Width, spec.Size.Height, spec.FPS)))
	src.SetProperty("format", gst.FormatTime)
	src.SetProperty("is-live", true)
	src.SetProperty("do-timestamp", false)
	// Bounded queue: enough-data fires when a few frames are pending.
	src.SetProperty("max-bytes", uint64(spec.Size.Width*spec.Size.Height*4*3))

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create videoconvert: %w", err)
	}
	setOptional(convert, logger, "n-threads", uint(0))

	i420, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create capsfilter: %w", err)
	}
	i420.SetProperty("caps", gst.NewCapsFromString(encoderInputCaps(spec.Size.Width, spec.Size.Height)))

	encoder, usingVAAPI, err := newH264Encoder(f.cfg.Accel, spec.FPS, f.cfg.VideoBitrate, logger)
	if err != nil {
		return nil, err
	}

	parse, err := gst.NewElement("h264parse")
	if err != nil {
		return nil, fmt.Errorf("gstmedia: failed to create h264parse: %w", err)
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

	// VAAPI encoders negotiate their own surface format.
	chain := []*gst.Element{src.Element, convert, i420, encoder, parse, mux, sink}
	if usingVAAPI {
		chain = []*gst.Element{src.Element, convert, encoder, parse, mux, sink}
	}
	if err := pipeline.AddMany(chain...); err != nil {
		return nil, fmt.Errorf("gstmedia: failed to add video elements: %w", err)
	}
	if err := gst.ElementLinkMany(chain...); err != nil {
		return nil, fmt.Errorf("gstmedia: failed to link video pipeline: %w", err)
	}

	v := &videoSink{
		path:          path,
		spec:          spec,
		logger:        logger,
		pipeline:      pipeline,
		src:           src,
		frameDuration: time.Second / time.Duration(spec.FPS),
		usingVAAPI:    usingVAAPI,
	}
	v.ready.Store(true)

	src.SetCallbacks(&app.SourceCallbacks{
		NeedDataFunc: func(self *app.Source, length uint) {
			v.ready.Store(true)
		},
		EnoughDataFunc: func(self *app.Source) {
			v.ready.Store(false)
		},
	})

	v.bus = watchBus(pipeline, "video", logger, &f.errors)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		v.Abort()
		return nil, fmt.Errorf("gstmedia: failed to start video pipeline: %w", err)
	}

	logger.Info("gstmedia: video sink started",
		"path", path,
		"resolution", fmt.Sprintf("%dx%d", spec.Size.Width, spec.Size.Height),
		"fps", spec.FPS,
		"vaapi", usingVAAPI,
	)
	return v, nil
}

// Ready implements recorder.VideoSink.
func (v *videoSink) Ready() bool {
	return v.ready.Load() && !v.finalized.Load() && v.bus.Err() == nil
}

// Submit implements recorder.VideoSink. The pixels are copied into a
// GStreamer buffer, so buf is released before returning.
func (v *videoSink) Submit(buf *recorder.PixelBuffer, pts time.Duration) error {
	if v.finalized.Load() {
		return recorder.ErrSinkFinalized
	}
	if !v.Ready() {
		return recorder.ErrNotReady
	}

	gbuf := gst.NewBufferFromBytes(buf.Bytes())
	gbuf.SetPresentationTimestamp(pts)
	gbuf.SetDuration(v.frameDuration)

	if ret := v.src.PushBuffer(gbuf); ret != gst.FlowOK {
		return fmt.Errorf("gstmedia: push video buffer: flow %v", ret)
	}
	buf.Release()
	v.frames.Add(1)
	return nil
}

// Finalize implements recorder.VideoSink: end the stream, wait for mp4mux to
// write the index and filesink to close.
func (v *videoSink) Finalize(ctx context.Context) error {
	if !v.finalized.CompareAndSwap(false, true) {
		return nil
	}
	defer v.teardown()

	if ret := v.src.EndStream(); ret != gst.FlowOK {
		return fmt.Errorf("gstmedia: end video stream: flow %v", ret)
	}
	if err := v.bus.WaitEOS(ctx); err != nil {
		return err
	}

	v.logger.Info("gstmedia: video file finalized",
		"path", v.path,
		"frames", v.frames.Load(),
	)
	return nil
}

// Abort implements recorder.VideoSink.
func (v *videoSink) Abort() {
	v.finalized.Store(true)
	v.teardown()
}

func (v *videoSink) teardown() {
	v.bus.Stop()
	if err := v.pipeline.SetState(gst.StateNull); err != nil {
		v.logger.Error("gstmedia: failed to stop video pipeline", "error", err)
	}
}

// Path implements recorder.VideoSink.
func (v *videoSink) Path() string { return v.path }
