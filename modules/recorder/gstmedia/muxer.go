package gstmedia

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/john-rocky/ObjectMeasurement/modules/recorder"
)

// Combine implements recorder.Muxer. The output holds the video track and
// the audio track, both cut to the shorter input.
func (f *Factory) Combine(ctx context.Context, videoPath, audioPath string) (string, error) {
	videoDur, err := f.Duration(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("gstmedia: probe video: %w", err)
	}
	audioDur, err := f.Duration(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("gstmedia: probe audio: %w", err)
	}
	cut := recorder.MergeDuration(videoDur, audioDur)

	out, err := f.cfg.Storage.TempPath("scene", ".mp4")
	if err != nil {
		return "", err
	}

	start := time.Now()
	if err := f.remux(ctx, videoPath, audioPath, out, cut); err != nil {
		os.Remove(out)
		return "", err
	}

	f.logger.Info("gstmedia: media merged",
		"output", out,
		"video_duration", videoDur,
		"audio_duration", audioDur,
		"duration", cut,
		"elapsed", time.Since(start),
	)
	return out, nil
}

func (f *Factory) remux(ctx context.Context, videoPath, audioPath, out string, cut time.Duration) error {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("gstmedia: failed to create pipeline: %w", err)
	}

	vsrc, vdemux, err := newDemuxBranch(videoPath)
	if err != nil {
		return err
	}
	asrc, ademux, err := newDemuxBranch(audioPath)
	if err != nil {
		return err
	}

	vqueue, err := gst.NewElement("queue")
	if err != nil {
		return fmt.Errorf("gstmedia: failed to create queue: %w", err)
	}
	aqueue, err := gst.NewElement("queue")
	if err != nil {
		return fmt.Errorf("gstmedia: failed to create queue: %w", err)
	}
	vparse, err := gst.NewElement("h264parse")
	if err != nil {
		return fmt.Errorf("gstmedia: failed to create h264parse: %w", err)
	}
	aparse, err := gst.NewElement("aacparse")
	if err != nil {
		return fmt.Errorf("gstmedia: failed to create aacparse: %w", err)
	}
	mux, err := gst.NewElement("mp4mux")
	if err != nil {
		return fmt.Errorf("gstmedia: failed to create mp4mux: %w", err)
	}
	sink, err := gst.NewElement("filesink")
	if err != nil {
		return fmt.Errorf("gstmedia: failed to create filesink: %w", err)
	}
	sink.SetProperty("location", out)

	if err := pipeline.AddMany(vsrc, vdemux, asrc, ademux, vqueue, aqueue, vparse, aparse, mux, sink); err != nil {
		return fmt.Errorf("gstmedia: failed to add merge elements: %w", err)
	}

	links := [][]*gst.Element{
		{vsrc, vdemux},
		{asrc, ademux},
		{vqueue, vparse, mux},
		{aqueue, aparse, mux},
		{mux, sink},
	}
	for _, chain := range links {
		if err := gst.ElementLinkMany(chain...); err != nil {
			return fmt.Errorf("gstmedia: failed to link merge pipeline: %w", err)
		}
	}

	connectDemux(vdemux, "video", vqueue, f.logger)
	connectDemux(ademux, "audio", aqueue, f.logger)

	for _, q := range []*gst.Element{vqueue, aqueue} {
		q.GetStaticPad("src").AddProbe(gst.PadProbeTypeBuffer, trimProbe(cut))
	}

	w := watchBus(pipeline, "merge", f.logger, &f.errors)
	defer func() {
		w.Stop()
		pipeline.SetState(gst.StateNull)
	}()

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("gstmedia: failed to start merge pipeline: %w", err)
	}
	return w.WaitEOS(ctx)
}

func newDemuxBranch(path string) (src, demux *gst.Element, err error) {
	src, err = gst.NewElement("filesrc")
	if err != nil {
		return nil, nil, fmt.Errorf("gstmedia: failed to create filesrc: %w", err)
	}
	src.SetProperty("location", path)

	demux, err = gst.NewElement("qtdemux")
	if err != nil {
		return nil, nil, fmt.Errorf("gstmedia: failed to create qtdemux: %w", err)
	}
	return src, demux, nil
}

// connectDemux links the demuxer pad whose name starts with kind
// ("video_0", "audio_0") to target. Other tracks stay unlinked.
func connectDemux(demux *gst.Element, kind string, target *gst.Element, logger *slog.Logger) {
	demux.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		if !strings.HasPrefix(srcPad.GetName(), kind) {
			logger.Debug("gstmedia: ignoring demuxer pad", "pad", srcPad.GetName(), "want", kind)
			return
		}
		linkDynamicPad(srcPad, target, logger)
	})
}

func linkDynamicPad(srcPad *gst.Pad, target *gst.Element, logger *slog.Logger) {
	sinkPad := target.GetStaticPad("sink")
	if sinkPad == nil {
		logger.Error("gstmedia: target has no sink pad", "element", target.GetName())
		return
	}
	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		logger.Error("gstmedia: failed to link pads",
			"src_pad", srcPad.GetName(),
			"sink_pad", sinkPad.GetName(),
			"ret", ret,
		)
		return
	}
	logger.Debug("gstmedia: pads linked", "src_pad", srcPad.GetName(), "element", target.GetName())
}

// trimProbe drops buffers presented at or after cut.
func trimProbe(cut time.Duration) func(*gst.Pad, *gst.PadProbeInfo) gst.PadProbeReturn {
	return func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		buf := info.GetBuffer()
		if buf == nil {
			return gst.PadProbeOK
		}
		if keepBuffer(buf.PresentationTimestamp(), cut) {
			return gst.PadProbeOK
		}
		return gst.PadProbeDrop
	}
}

// keepBuffer reports whether a buffer at pts survives a cut. A missing
// timestamp reads as negative and is kept.
func keepBuffer(pts, cut time.Duration) bool {
	return pts < cut
}
