package capture

import (
	"fmt"
	"log/slog"
	"time"
)

// SourceKind selects the live video source.
type SourceKind int

const (
	// SourceTest is a synthetic videotestsrc feed.
	SourceTest SourceKind = iota
	// SourceV4L2 is a local camera device.
	SourceV4L2
	// SourceRTSP is a network camera (H.264 over RTSP/TCP).
	SourceRTSP
)

func (k SourceKind) String() string {
	switch k {
	case SourceTest:
		return "test"
	case SourceV4L2:
		return "v4l2"
	case SourceRTSP:
		return "rtsp"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// ParseSourceKind maps a config string to a kind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch s {
	case "", "test":
		return SourceTest, nil
	case "v4l2":
		return SourceV4L2, nil
	case "rtsp":
		return SourceRTSP, nil
	default:
		return SourceTest, fmt.Errorf("capture: unknown source %q (expected test, v4l2 or rtsp)", s)
	}
}

// Config configures a Stream.
type Config struct {
	Source SourceKind

	// Device is the V4L2 device path (default /dev/video0).
	Device string

	// URL is the RTSP URL, required for SourceRTSP.
	URL string

	// Width and Height of delivered frames.
	Width  int
	Height int

	// FPS of delivered frames (1-120).
	FPS int

	// Buffer is the frame channel capacity (default 4).
	Buffer int

	// Reconnect applies to pipeline failures after Start.
	Reconnect ReconnectConfig

	Logger *slog.Logger
}

// Stats is a snapshot of stream counters.
type Stats struct {
	FrameCount    uint64
	FramesDropped uint64
	DropRate      float64 // percent
	FPSTarget     int
	FPSReal       float64
	LatencyMS     int64 // time since the last frame
	Resolution    string
	Source        string
	IsRunning     bool
	Errors        uint64
	Reconnects    uint32
	Uptime        time.Duration
}
