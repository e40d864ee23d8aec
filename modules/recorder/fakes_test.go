package recorder

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// callLog records the order of sink operations across fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(c string) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeVideoSink struct {
	log  *callLog
	path string

	notReady    atomic.Bool
	holdBuffers bool
	finalizeErr error

	mu             sync.Mutex
	pts            []time.Duration
	held           []*PixelBuffer
	finalized      bool
	aborted        bool
	submitAfterEnd bool
}

func (v *fakeVideoSink) Ready() bool { return !v.notReady.Load() }

func (v *fakeVideoSink) Submit(buf *PixelBuffer, pts time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.finalized {
		v.submitAfterEnd = true
		return ErrSinkFinalized
	}
	if v.notReady.Load() {
		return ErrNotReady
	}
	v.pts = append(v.pts, pts)
	if v.holdBuffers {
		v.held = append(v.held, buf)
		return nil
	}
	buf.Release()
	return nil
}

func (v *fakeVideoSink) Finalize(ctx context.Context) error {
	v.log.add("video.finalize")
	v.mu.Lock()
	v.finalized = true
	v.mu.Unlock()
	return v.finalizeErr
}

func (v *fakeVideoSink) Abort() {
	v.log.add("video.abort")
	v.mu.Lock()
	v.aborted = true
	v.mu.Unlock()
}

func (v *fakeVideoSink) Path() string { return v.path }

func (v *fakeVideoSink) timestamps() []time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]time.Duration(nil), v.pts...)
}

type fakeAudioSink struct {
	log      *callLog
	startErr error
	stopErr  error
}

func (a *fakeAudioSink) Start() error {
	a.log.add("audio.start")
	return a.startErr
}

func (a *fakeAudioSink) Stop() error {
	a.log.add("audio.stop")
	return a.stopErr
}

func (a *fakeAudioSink) Path() string { return "/tmp/audio.m4a" }

type fakeFactory struct {
	log *callLog

	videoErr error
	audioErr error
	video    *fakeVideoSink
	audio    *fakeAudioSink

	videoCreated atomic.Int32
}

func newFakeFactory() *fakeFactory {
	log := &callLog{}
	return &fakeFactory{
		log:   log,
		video: &fakeVideoSink{log: log, path: "/tmp/video.mp4"},
		audio: &fakeAudioSink{log: log},
	}
}

func (f *fakeFactory) NewVideoSink(ctx context.Context, spec VideoSpec) (VideoSink, error) {
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	f.videoCreated.Add(1)
	f.log.add("video.new")
	return f.video, nil
}

func (f *fakeFactory) NewAudioSink(ctx context.Context, spec AudioSpec) (AudioSink, error) {
	if f.audioErr != nil {
		return nil, f.audioErr
	}
	f.log.add("audio.new")
	return f.audio, nil
}

type fakeMuxer struct {
	log   *callLog
	err   error
	calls atomic.Int32
}

func (m *fakeMuxer) Combine(ctx context.Context, videoPath, audioPath string) (string, error) {
	m.calls.Add(1)
	m.log.add("mux")
	if m.err != nil {
		return "", m.err
	}
	return "/tmp/merged.mp4", nil
}
