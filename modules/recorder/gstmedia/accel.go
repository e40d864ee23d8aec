package gstmedia

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
)

// HardwareAccel selects the H.264 encoder family.
type HardwareAccel int

const (
	// AccelAuto tries VAAPI first and falls back to software.
	AccelAuto HardwareAccel = iota
	// AccelVAAPI requires vaapih264enc.
	AccelVAAPI
	// AccelSoftware uses x264enc, or openh264enc when x264 is missing.
	AccelSoftware
)

func (a HardwareAccel) String() string {
	switch a {
	case AccelAuto:
		return "auto"
	case AccelVAAPI:
		return "vaapi"
	case AccelSoftware:
		return "software"
	default:
		return fmt.Sprintf("HardwareAccel(%d)", int(a))
	}
}

// ParseHardwareAccel maps a config string to a mode.
func ParseHardwareAccel(s string) (HardwareAccel, error) {
	switch s {
	case "", "auto":
		return AccelAuto, nil
	case "vaapi":
		return AccelVAAPI, nil
	case "software":
		return AccelSoftware, nil
	default:
		return AccelAuto, fmt.Errorf("gstmedia: unknown acceleration %q (expected auto, vaapi or software)", s)
	}
}

// newH264Encoder creates the encoder for accel. usingVAAPI reports whether a
// hardware encoder was selected.
func newH264Encoder(accel HardwareAccel, fps, bitrateKbps int, logger *slog.Logger) (enc *gst.Element, usingVAAPI bool, err error) {
	if accel == AccelVAAPI || accel == AccelAuto {
		enc, err = gst.NewElement("vaapih264enc")
		if err == nil {
			setOptional(enc, logger, "bitrate", uint(bitrateKbps))
			setOptional(enc, logger, "keyframe-period", uint(fps*2))
			logger.Info("gstmedia: using vaapih264enc")
			return enc, true, nil
		}
		if accel == AccelVAAPI {
			return nil, false, fmt.Errorf("gstmedia: vaapih264enc not available (VAAPI required): %w", err)
		}
		logger.Warn("gstmedia: VAAPI encoder unavailable, using software encoder", "error", err)
	}

	enc, err = gst.NewElement("x264enc")
	if err == nil {
		setOptional(enc, logger, "bitrate", uint(bitrateKbps))
		setOptional(enc, logger, "key-int-max", uint(fps*2))
		setOptional(enc, logger, "speed-preset", 1) // ultrafast
		setOptional(enc, logger, "tune", 4)         // zerolatency
		return enc, false, nil
	}

	enc, err2 := gst.NewElement("openh264enc")
	if err2 != nil {
		return nil, false, fmt.Errorf("gstmedia: no H.264 encoder (x264enc: %v, openh264enc: %w)", err, err2)
	}
	setOptional(enc, logger, "bitrate", uint(bitrateKbps*1000))
	logger.Warn("gstmedia: x264enc unavailable, using openh264enc", "error", err)
	return enc, false, nil
}

// newAACEncoder creates the first available AAC encoder.
func newAACEncoder(bitrate int, logger *slog.Logger) (*gst.Element, error) {
	var errs []error
	for _, name := range []string{"avenc_aac", "voaacenc", "fdkaacenc"} {
		enc, err := gst.NewElement(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		setOptional(enc, logger, "bitrate", bitrate)
		logger.Debug("gstmedia: using AAC encoder", "encoder", name)
		return enc, nil
	}
	return nil, fmt.Errorf("gstmedia: no AAC encoder available: %v", errs)
}

// setOptional sets a tuning property, logging instead of failing when the
// element version does not support it.
func setOptional(e *gst.Element, logger *slog.Logger, name string, value interface{}) {
	if err := e.SetProperty(name, value); err != nil {
		logger.Debug("gstmedia: optional property not applied",
			"element", e.GetName(),
			"property", name,
			"error", err,
		)
	}
}

// checkGStreamerAvailable verifies GStreamer initializes and can create elements.
func checkGStreamerAvailable() error {
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}

// checkVAAPIAvailable verifies the VAAPI encoder plugin is installed.
func checkVAAPIAvailable() error {
	enc, err := gst.NewElement("vaapih264enc")
	if err != nil {
		return fmt.Errorf("vaapih264enc not available (install gstreamer1.0-vaapi): %w", err)
	}
	enc.SetState(gst.StateNull)
	return nil
}
