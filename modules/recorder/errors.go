package recorder

import "errors"

var (
	// ErrAssetWriterInitFailed is returned by Start when a sink cannot be created.
	ErrAssetWriterInitFailed = errors.New("recorder: asset writer init failed")

	// ErrFinalizeFailed is reported when the video file cannot be completed.
	ErrFinalizeFailed = errors.New("recorder: video finalize failed")

	// ErrMergeFailed is reported when video and audio cannot be combined.
	ErrMergeFailed = errors.New("recorder: media merging failed")

	// ErrPoolExhausted is returned by PixelBufferPool.Acquire when every buffer is in flight.
	ErrPoolExhausted = errors.New("recorder: pixel buffer pool exhausted")

	// ErrNotReady is returned by VideoSink.Submit when the encoder cannot accept input.
	ErrNotReady = errors.New("recorder: encoder not ready")

	// ErrSinkFinalized is returned by VideoSink.Submit after Finalize.
	ErrSinkFinalized = errors.New("recorder: sink finalized")

	// ErrNoCaptureDevice is returned by SinkFactory.NewAudioSink when no
	// microphone is available. The session continues video-only.
	ErrNoCaptureDevice = errors.New("recorder: no audio capture device")

	// ErrAlreadyRecording is returned by Start outside the Idle state.
	ErrAlreadyRecording = errors.New("recorder: already recording")

	// ErrNotRecording is returned when an operation needs an active session.
	ErrNotRecording = errors.New("recorder: not recording")

	// ErrRecordingDisabled is returned by Start while recording is switched off.
	ErrRecordingDisabled = errors.New("recorder: recording disabled")
)
