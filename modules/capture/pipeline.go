package capture

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// pipelineElements holds references needed after construction.
type pipelineElements struct {
	pipeline *gst.Pipeline
	appsink  *app.Sink
	rtspsrc  *gst.Element // nil unless SourceRTSP
	depay    *gst.Element
}

// createPipeline builds the capture pipeline. Not started.
//
//	test: videotestsrc ─┐
//	v4l2: v4l2src      ─┼→ videoconvert → videoscale → videorate → capsfilter(RGBA) → appsink
//	rtsp: rtspsrc → rtph264depay → avdec_h264 ─┘
func createPipeline(cfg Config, logger *slog.Logger) (*pipelineElements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	els := &pipelineElements{pipeline: pipeline}
	var head []*gst.Element

	switch cfg.Source {
	case SourceTest:
		src, err := gst.NewElement("videotestsrc")
		if err != nil {
			return nil, fmt.Errorf("failed to create videotestsrc: %w", err)
		}
		src.SetProperty("is-live", true)
		head = []*gst.Element{src}

	case SourceV4L2:
		src, err := gst.NewElement("v4l2src")
		if err != nil {
			return nil, fmt.Errorf("failed to create v4l2src: %w", err)
		}
		src.SetProperty("device", cfg.Device)
		head = []*gst.Element{src}

	case SourceRTSP:
		src, err := gst.NewElement("rtspsrc")
		if err != nil {
			return nil, fmt.Errorf("failed to create rtspsrc: %w", err)
		}
		src.SetProperty("location", cfg.URL)
		src.SetProperty("protocols", 4) // TCP only
		src.SetProperty("latency", 200)

		depay, err := gst.NewElement("rtph264depay")
		if err != nil {
			return nil, fmt.Errorf("failed to create rtph264depay: %w", err)
		}
		depay.SetProperty("request-keyframe", true)

		dec, err := gst.NewElement("avdec_h264")
		if err != nil {
			return nil, fmt.Errorf("failed to create avdec_h264: %w", err)
		}
		dec.SetProperty("max-threads", 0)

		els.rtspsrc = src
		els.depay = depay
		head = []*gst.Element{depay, dec}
		if err := pipeline.Add(src); err != nil {
			return nil, fmt.Errorf("failed to add rtspsrc: %w", err)
		}

	default:
		return nil, fmt.Errorf("invalid source kind: %d", cfg.Source)
	}

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}
	rate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("failed to create videorate: %w", err)
	}
	rate.SetProperty("drop-only", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(buildCaps(cfg.Width, cfg.Height, cfg.FPS)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)
	els.appsink = appsink

	chain := append(head, convert, scale, rate, capsfilter, appsink.Element)
	if err := pipeline.AddMany(chain...); err != nil {
		return nil, fmt.Errorf("failed to add elements: %w", err)
	}
	if err := gst.ElementLinkMany(chain...); err != nil {
		return nil, fmt.Errorf("failed to link %s pipeline: %w", cfg.Source, err)
	}

	logger.Debug("capture: pipeline created",
		"source", cfg.Source.String(),
		"caps", buildCaps(cfg.Width, cfg.Height, cfg.FPS),
	)
	return els, nil
}

// buildCaps is the format delivered to the appsink.
func buildCaps(width, height, fps int) string {
	return fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/1", width, height, fps)
}

func destroyPipeline(els *pipelineElements) error {
	if els == nil || els.pipeline == nil {
		return nil
	}
	if err := els.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}
