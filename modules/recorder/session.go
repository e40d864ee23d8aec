package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
	"github.com/john-rocky/ObjectMeasurement/modules/recorder/internal/fpsstats"
	"github.com/john-rocky/ObjectMeasurement/modules/recorder/internal/mailbox"
)

// cadenceWindow is the number of source timestamps kept per session.
const cadenceWindow = 300

// session is one recording. It exists only fully initialized: newSession
// either returns every resource ready or releases what it created.
type session struct {
	id     string
	logger *slog.Logger

	pacer *FramePacer
	pool  *PixelBufferPool
	video VideoSink
	audio AudioSink // nil when recording video-only

	inbox    *mailbox.Mailbox[arframe.Frame]
	stopping atomic.Bool
	wg       sync.WaitGroup
	cadence  *fpsstats.Tracker

	offered        atomic.Uint64
	received       atomic.Uint64
	droppedBusy    atomic.Uint64
	droppedPool    atomic.Uint64
	droppedFailed  atomic.Uint64
	lastPTS        atomic.Int64
	audioAvailable bool
}

func newSession(ctx context.Context, cfg Config, sinks SinkFactory) (*session, error) {
	id := uuid.NewString()
	logger := cfg.Logger.With("session_id", id)

	pacer, err := NewFramePacer(cfg.FPS)
	if err != nil {
		return nil, err
	}
	pool, err := NewPixelBufferPool(cfg.VideoSize, cfg.PoolSize)
	if err != nil {
		return nil, err
	}

	video, err := sinks.NewVideoSink(ctx, VideoSpec{SessionID: id, Size: cfg.VideoSize, FPS: cfg.FPS})
	if err != nil {
		return nil, fmt.Errorf("%w: video sink: %w", ErrAssetWriterInitFailed, err)
	}

	s := &session{
		id:      id,
		logger:  logger,
		pacer:   pacer,
		pool:    pool,
		video:   video,
		inbox:   mailbox.New[arframe.Frame](),
		cadence: fpsstats.NewTracker(cadenceWindow),
	}

	if !cfg.Audio {
		return s, nil
	}

	audio, err := sinks.NewAudioSink(ctx, AudioSpec{SessionID: id, SampleRate: AudioSampleRate, Channels: AudioChannels})
	switch {
	case errors.Is(err, ErrNoCaptureDevice):
		logger.Warn("recorder: no audio capture device, recording video only")
		return s, nil
	case err != nil:
		video.Abort()
		return nil, fmt.Errorf("%w: audio sink: %w", ErrAssetWriterInitFailed, err)
	}

	if err := audio.Start(); err != nil {
		_ = audio.Stop()
		video.Abort()
		return nil, fmt.Errorf("%w: audio start: %w", ErrAssetWriterInitFailed, err)
	}

	s.audio = audio
	s.audioAvailable = true
	return s, nil
}

func (s *session) dropped() uint64 {
	return s.droppedBusy.Load() + s.droppedPool.Load() + s.droppedFailed.Load()
}
