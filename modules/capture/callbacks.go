package capture

import (
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

// callbackContext holds state needed by the appsink callback.
type callbackContext struct {
	frames        chan<- arframe.Frame
	closed        *atomic.Bool
	frameCounter  *atomic.Uint64
	framesDropped *atomic.Uint64
	lastFrameAt   *atomic.Int64 // unix nanos
	started       time.Time
	width         int
	height        int
	logger        *slog.Logger
}

// onNewSample copies the RGBA sample into a Frame and hands it off
// without blocking. A full channel drops the frame.
func onNewSample(sink *app.Sink, ctx *callbackContext) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		ctx.logger.Warn("capture: failed to pull sample, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		ctx.logger.Warn("capture: sample without buffer, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		ctx.logger.Warn("capture: empty buffer received")
		return gst.FlowOK
	}

	img, ok := rgbaFromBytes(data, ctx.width, ctx.height)
	buffer.Unmap()
	if !ok {
		ctx.logger.Warn("capture: unexpected buffer size",
			"size_bytes", len(data),
			"expected", ctx.width*ctx.height*4,
		)
		return gst.FlowOK
	}

	pts := buffer.PresentationTimestamp()
	if pts < 0 {
		pts = time.Since(ctx.started)
	}

	seq := ctx.frameCounter.Add(1)
	ctx.lastFrameAt.Store(time.Now().UnixNano())

	frame := arframe.Frame{
		Seq:       seq,
		Timestamp: pts,
		Image:     img,
		TraceID:   uuid.New().String(),
	}

	if ctx.closed.Load() {
		return gst.FlowOK
	}
	select {
	case ctx.frames <- frame:
	default:
		ctx.framesDropped.Add(1)
		ctx.logger.Debug("capture: dropping frame, channel full",
			"seq", frame.Seq,
			"trace_id", frame.TraceID,
		)
	}
	return gst.FlowOK
}

// rgbaFromBytes copies a tightly packed RGBA buffer. GStreamer reuses
// the mapped memory, so the copy is required.
func rgbaFromBytes(data []byte, width, height int) (*image.RGBA, bool) {
	if width <= 0 || height <= 0 || len(data) < width*height*4 {
		return nil, false
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, data[:width*height*4])
	return img, true
}

// onPadAdded links a dynamic rtspsrc pad to the depayloader.
func onPadAdded(srcPad *gst.Pad, depay *gst.Element, logger *slog.Logger) {
	sinkPad := depay.GetStaticPad("sink")
	if sinkPad == nil {
		logger.Error("capture: depayloader has no sink pad")
		return
	}
	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		logger.Error("capture: failed to link pads",
			"src_pad", srcPad.GetName(),
			"sink_pad", sinkPad.GetName(),
			"ret", ret,
		)
		return
	}
	logger.Debug("capture: pads linked", "src_pad", srcPad.GetName())
}
