package recorder

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/image/draw"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

// Rotation is the clockwise rotation applied to captured images, in degrees.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Valid reports whether r is a quarter turn.
func (r Rotation) Valid() bool {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	}
	return false
}

// AspectMode decides how a source image that does not match the output
// aspect ratio is placed.
type AspectMode int

const (
	// AspectFill scales to cover the output and crops the overflow.
	AspectFill AspectMode = iota
	// AspectFit scales to fit inside the output and letterboxes the rest.
	AspectFit
)

func (m AspectMode) String() string {
	switch m {
	case AspectFill:
		return "fill"
	case AspectFit:
		return "fit"
	default:
		return fmt.Sprintf("AspectMode(%d)", int(m))
	}
}

// ParseAspectMode maps "fill" or "fit" to a mode. Empty means fill.
func ParseAspectMode(s string) (AspectMode, error) {
	switch s {
	case "", "fill":
		return AspectFill, nil
	case "fit":
		return AspectFit, nil
	default:
		return AspectFill, fmt.Errorf("recorder: unknown aspect mode %q (expected fill or fit)", s)
	}
}

const (
	DefaultPoolSize        = 3
	DefaultFinalizeTimeout = 10 * time.Second
	DefaultMergeTimeout    = 30 * time.Second
	DefaultEventBuffer     = 16

	AudioSampleRate = 44100
	AudioChannels   = 2
)

// Config configures a Recorder. Rotation and Aspect are fixed for the
// lifetime of every session started by the Recorder.
type Config struct {
	// FPS is the output frame rate.
	FPS int

	// VideoSize is the output frame size after rotation.
	VideoSize arframe.Size

	Rotation Rotation
	Aspect   AspectMode

	// Watermark is composited at the top center of every frame. Optional.
	Watermark image.Image

	// Interpolator scales source images. Defaults to draw.ApproxBiLinear.
	Interpolator draw.Interpolator

	// PoolSize is the number of pixel buffers per session.
	PoolSize int

	// Audio enables microphone capture. Without a device the session runs video-only.
	Audio bool

	// Disabled starts the Recorder with recording switched off.
	Disabled bool

	FinalizeTimeout time.Duration
	MergeTimeout    time.Duration

	// Dispatcher runs completion callbacks. Defaults to calling them directly
	// on the stop goroutine. UI hosts pass a function that marshals onto
	// their main loop.
	Dispatcher func(func())

	// EventBuffer is the capacity of the Events channel.
	EventBuffer int

	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("recorder: fps must be in [1,240], got %d", c.FPS)
	}
	if c.VideoSize.Empty() {
		return fmt.Errorf("recorder: video size %dx%d is empty", c.VideoSize.Width, c.VideoSize.Height)
	}
	if c.VideoSize.Width%2 != 0 || c.VideoSize.Height%2 != 0 {
		return fmt.Errorf("recorder: video size %dx%d must have even dimensions",
			c.VideoSize.Width, c.VideoSize.Height)
	}
	if !c.Rotation.Valid() {
		return fmt.Errorf("recorder: invalid rotation %d (expected 0, 90, 180 or 270)", c.Rotation)
	}
	if c.Aspect != AspectFill && c.Aspect != AspectFit {
		return fmt.Errorf("recorder: invalid aspect mode %d", c.Aspect)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("recorder: pool size must be >= 0, got %d", c.PoolSize)
	}

	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.FinalizeTimeout <= 0 {
		c.FinalizeTimeout = DefaultFinalizeTimeout
	}
	if c.MergeTimeout <= 0 {
		c.MergeTimeout = DefaultMergeTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	if c.Interpolator == nil {
		c.Interpolator = draw.ApproxBiLinear
	}
	if c.Dispatcher == nil {
		c.Dispatcher = func(fn func()) { fn() }
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}
