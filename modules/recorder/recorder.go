package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

// State is the recorder lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRecording
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Recorder records live frames to a video file, one session at a time.
type Recorder struct {
	cfg      Config
	sinks    SinkFactory
	muxer    Muxer
	recycler *PixelBufferRecycler
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	current *session

	// active is the session accepting frames; nil outside Recording.
	active  atomic.Pointer[session]
	enabled atomic.Bool

	events        chan Event
	eventsDropped atomic.Uint64
	sessions      atomic.Uint64
	lastStats     atomic.Pointer[Stats]
}

// New returns an idle Recorder.
//
// Fail-fast validation: invalid fps, size, rotation or aspect mode returns an
// error; missing optional fields get defaults.
func New(cfg Config, sinks SinkFactory, muxer Muxer) (*Recorder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if sinks == nil {
		return nil, fmt.Errorf("recorder: sink factory is required")
	}
	if cfg.Audio && muxer == nil {
		return nil, fmt.Errorf("recorder: muxer is required when audio is enabled")
	}

	recycler, err := NewPixelBufferRecycler(cfg.Rotation, cfg.Aspect, cfg.Watermark, cfg.Interpolator)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		cfg:      cfg,
		sinks:    sinks,
		muxer:    muxer,
		recycler: recycler,
		logger:   cfg.Logger,
		events:   make(chan Event, cfg.EventBuffer),
	}
	r.enabled.Store(!cfg.Disabled)
	return r, nil
}

// Events delivers lifecycle events. Failures are always published here in
// addition to the done callback. The channel is never closed.
func (r *Recorder) Events() <-chan Event {
	return r.events
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetEnabled switches recording on or off. A running session is not affected.
func (r *Recorder) SetEnabled(on bool) {
	r.enabled.Store(on)
}

// Enabled reports whether Start is allowed.
func (r *Recorder) Enabled() bool {
	return r.enabled.Load()
}

// Start begins a session. Only valid in Idle; a second call while a session
// exists returns ErrAlreadyRecording and creates nothing.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.enabled.Load() {
		return ErrRecordingDisabled
	}

	r.mu.Lock()
	if r.state != StateIdle {
		state := r.state
		r.mu.Unlock()
		r.logger.Debug("recorder: start ignored", "state", state.String())
		return ErrAlreadyRecording
	}
	r.state = StateStarting
	r.mu.Unlock()

	s, err := newSession(ctx, r.cfg, r.sinks)
	if err != nil {
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()

		r.logger.Error("recorder: session start failed", "error", err)
		r.publish(Event{Kind: EventStartFailed, Err: err})
		return err
	}

	// The session must be fully wired before Stop can observe Recording.
	r.mu.Lock()
	r.current = s
	r.active.Store(s)
	s.wg.Add(1)
	go r.paceLoop(s)
	r.state = StateRecording
	r.mu.Unlock()
	r.sessions.Add(1)

	s.logger.Info("recorder: recording started",
		"fps", r.cfg.FPS,
		"width", r.cfg.VideoSize.Width,
		"height", r.cfg.VideoSize.Height,
		"rotation", int(r.cfg.Rotation),
		"aspect", r.cfg.Aspect.String(),
		"audio", s.audioAvailable,
		"video_path", s.video.Path(),
	)
	if r.cfg.Audio && !s.audioAvailable {
		r.publish(Event{Kind: EventAudioUnavailable, SessionID: s.id, Err: ErrNoCaptureDevice})
	}
	r.publish(Event{Kind: EventStarted, SessionID: s.id, Path: s.video.Path()})
	return nil
}

// Publish offers a live frame to the active session. Never blocks; a frame
// not yet consumed is replaced by the newer one. No-op outside Recording.
func (r *Recorder) Publish(frame arframe.Frame) {
	s := r.active.Load()
	if s == nil {
		return
	}
	s.offered.Add(1)
	s.inbox.Put(frame)
}

// Stop ends the session. Only accepted in Recording: returns false (and
// never calls done) while Idle, Starting or Stopping.
//
// done receives the output path, or an error wrapping ErrFinalizeFailed or
// ErrMergeFailed, exactly once through the configured Dispatcher. On a merge
// failure path is the raw video file.
func (r *Recorder) Stop(done func(path string, err error)) bool {
	r.mu.Lock()
	if r.state != StateRecording {
		state := r.state
		r.mu.Unlock()
		r.logger.Debug("recorder: stop ignored", "state", state.String())
		return false
	}
	r.state = StateStopping
	s := r.current
	r.mu.Unlock()

	s.stopping.Store(true)
	r.active.Store(nil)
	s.inbox.Close()

	go r.finish(s, done)
	return true
}

// paceLoop drains the session inbox until the session stops.
func (r *Recorder) paceLoop(s *session) {
	defer s.wg.Done()

	for {
		frame, ok := s.inbox.Take()
		if !ok || s.stopping.Load() {
			return
		}
		s.received.Add(1)
		s.cadence.Add(frame.Timestamp)
		r.emit(s, frame)
	}
}

// emit turns a due frame into an encoded frame or drops it.
func (r *Recorder) emit(s *session, frame arframe.Frame) {
	if !s.pacer.ShouldEmit(frame.Timestamp) {
		return
	}

	if !s.video.Ready() {
		s.droppedBusy.Add(1)
		s.logger.Debug("recorder: frame dropped", "reason", "encoder_not_ready", "trace_id", frame.TraceID)
		return
	}

	buf, err := s.pool.Acquire()
	if err != nil {
		s.droppedPool.Add(1)
		s.logger.Debug("recorder: frame dropped", "reason", "pool_exhausted", "trace_id", frame.TraceID)
		return
	}

	if err := r.recycler.WriteInto(buf, frame.Image); err != nil {
		buf.Release()
		s.droppedFailed.Add(1)
		s.logger.Debug("recorder: frame dropped", "reason", "write_failed", "trace_id", frame.TraceID, "error", err)
		return
	}

	if s.stopping.Load() {
		buf.Release()
		return
	}

	_, pts := s.pacer.Next()
	if err := s.video.Submit(buf, pts); err != nil {
		buf.Release()
		if errors.Is(err, ErrNotReady) {
			s.droppedBusy.Add(1)
		} else {
			s.droppedFailed.Add(1)
		}
		s.logger.Debug("recorder: frame dropped", "reason", "submit_failed", "trace_id", frame.TraceID, "error", err)
		return
	}

	s.pacer.Commit()
	s.lastPTS.Store(int64(pts))
}

// finish runs the stop stages and reports the outcome.
func (r *Recorder) finish(s *session, done func(string, error)) {
	start := time.Now()
	path, err := r.stopStages(s)

	stats := r.sessionStats(s, StateIdle)
	r.lastStats.Store(&stats)

	r.mu.Lock()
	r.current = nil
	r.state = StateIdle
	r.mu.Unlock()

	if err != nil {
		s.logger.Error("recorder: recording failed", "error", err, "path", path)
		r.publish(Event{Kind: EventFailed, SessionID: s.id, Path: path, Err: err})
	} else {
		s.logger.Info("recorder: recording complete",
			"path", path,
			"frames_emitted", stats.FramesEmitted,
			"frames_dropped", stats.FramesDropped,
			"source_fps", stats.Source.FPSMean,
			"source_stable", stats.Source.IsStable,
			"stop_duration", time.Since(start),
		)
		r.publish(Event{Kind: EventCompleted, SessionID: s.id, Path: path})
	}

	if done != nil {
		r.cfg.Dispatcher(func() { done(path, err) })
	}
}

// stopStages runs, in order: drain pacing, stop audio, finalize video, combine.
func (r *Recorder) stopStages(s *session) (string, error) {
	s.wg.Wait()

	audio := s.audio
	if audio != nil {
		if err := audio.Stop(); err != nil {
			s.logger.Warn("recorder: audio stop failed, keeping video only", "error", err)
			r.publish(Event{Kind: EventAudioUnavailable, SessionID: s.id, Err: err})
			audio = nil
		}
	}

	if s.pacer.Emitted() == 0 {
		s.logger.Warn("recorder: no frames were encoded, video track is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.FinalizeTimeout)
	err := s.video.Finalize(ctx)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFinalizeFailed, err)
	}

	if audio == nil {
		return s.video.Path(), nil
	}

	ctx, cancel = context.WithTimeout(context.Background(), r.cfg.MergeTimeout)
	defer cancel()
	out, err := r.muxer.Combine(ctx, s.video.Path(), audio.Path())
	if err != nil {
		return s.video.Path(), fmt.Errorf("%w: %w", ErrMergeFailed, err)
	}
	return out, nil
}
