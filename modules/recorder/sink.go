package recorder

import (
	"context"
	"time"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

// VideoSpec describes the video track a session writes.
type VideoSpec struct {
	SessionID string
	Size      arframe.Size
	FPS       int
}

// AudioSpec describes the audio track a session writes.
type AudioSpec struct {
	SessionID  string
	SampleRate int
	Channels   int
}

// VideoSink encodes pixel buffers into a video file.
type VideoSink interface {
	// Ready reports whether the encoder can accept a frame now.
	Ready() bool

	// Submit encodes buf at pts. On success ownership of buf passes to the
	// sink, which releases it once the pixels are consumed. On error the
	// caller keeps ownership. Returns ErrNotReady or ErrSinkFinalized.
	Submit(buf *PixelBuffer, pts time.Duration) error

	// Finalize marks the input finished and blocks until the file is
	// complete or ctx is done.
	Finalize(ctx context.Context) error

	// Abort releases resources without completing the file.
	Abort()

	// Path is the file being written.
	Path() string
}

// AudioSink captures microphone audio into a file.
type AudioSink interface {
	Start() error

	// Stop ends capture. The file is flushed and closed when Stop returns.
	Stop() error

	Path() string
}

// SinkFactory creates the sinks of one session.
type SinkFactory interface {
	NewVideoSink(ctx context.Context, spec VideoSpec) (VideoSink, error)

	// NewAudioSink returns ErrNoCaptureDevice when there is no microphone.
	NewAudioSink(ctx context.Context, spec AudioSpec) (AudioSink, error)
}

// Muxer combines a finished video file and audio file.
type Muxer interface {
	// Combine writes a file holding both tracks, cut to MergeDuration of the
	// inputs, and returns its path.
	Combine(ctx context.Context, videoPath, audioPath string) (string, error)
}

// MergeDuration is the length of the combined file: the shorter input.
func MergeDuration(video, audio time.Duration) time.Duration {
	return min(video, audio)
}
