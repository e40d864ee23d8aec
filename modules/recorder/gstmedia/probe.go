package gstmedia

import (
	"context"
	"fmt"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// Duration reads the duration of an MP4/M4A file by prerolling it into
// fake sinks and querying the pipeline.
func (f *Factory) Duration(ctx context.Context, path string) (time.Duration, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return 0, fmt.Errorf("gstmedia: failed to create pipeline: %w", err)
	}

	src, err := gst.NewElement("filesrc")
	if err != nil {
		return 0, fmt.Errorf("gstmedia: failed to create filesrc: %w", err)
	}
	src.SetProperty("location", path)

	demux, err := gst.NewElement("qtdemux")
	if err != nil {
		return 0, fmt.Errorf("gstmedia: failed to create qtdemux: %w", err)
	}

	if err := pipeline.AddMany(src, demux); err != nil {
		return 0, fmt.Errorf("gstmedia: failed to add probe elements: %w", err)
	}
	if err := src.Link(demux); err != nil {
		return 0, fmt.Errorf("gstmedia: failed to link probe pipeline: %w", err)
	}

	// qtdemux pads appear once the header is parsed.
	demux.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		sink, err := gst.NewElement("fakesink")
		if err != nil {
			f.logger.Error("gstmedia: failed to create fakesink", "error", err)
			return
		}
		if err := pipeline.Add(sink); err != nil {
			f.logger.Error("gstmedia: failed to add fakesink", "error", err)
			return
		}
		sink.SyncStateWithParent()
		linkDynamicPad(srcPad, sink, f.logger)
	})

	w := watchBus(pipeline, "probe", f.logger, &f.errors)
	defer func() {
		w.Stop()
		pipeline.SetState(gst.StateNull)
	}()

	if err := pipeline.SetState(gst.StatePaused); err != nil {
		return 0, fmt.Errorf("gstmedia: failed to preroll %s: %w", path, err)
	}
	if err := w.WaitAsyncDone(ctx); err != nil {
		return 0, err
	}

	ok, dur := pipeline.QueryDuration(gst.FormatTime)
	if !ok || dur <= 0 {
		return 0, fmt.Errorf("gstmedia: duration unknown for %s", path)
	}
	return time.Duration(dur), nil
}
