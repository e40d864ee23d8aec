package recorder

import (
	"fmt"
	"sync"
	"time"
)

// FramePacer decides which live frames become output frames.
//
// The first frame seen latches the start time. Frame index i is due once
// (now - start) >= i/fps and is stamped with the nominal presentation time
// i/fps, so output timestamps are evenly spaced and strictly increasing
// regardless of source jitter.
type FramePacer struct {
	fps int

	mu      sync.Mutex
	started bool
	start   time.Duration
	index   uint64
}

// NewFramePacer returns a pacer for fps output frames per second.
func NewFramePacer(fps int) (*FramePacer, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("recorder: fps must be > 0, got %d", fps)
	}
	return &FramePacer{fps: fps}, nil
}

// ShouldEmit reports whether a frame captured at now is due.
func (p *FramePacer) ShouldEmit(now time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.started = true
		p.start = now
	}
	return now-p.start >= p.PresentationTime(p.index)
}

// PresentationTime returns the nominal timestamp of output frame index.
func (p *FramePacer) PresentationTime(index uint64) time.Duration {
	return time.Duration(index) * time.Second / time.Duration(p.fps)
}

// Next returns the index and presentation time the next emitted frame gets.
func (p *FramePacer) Next() (uint64, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index, p.PresentationTime(p.index)
}

// Commit records that the pending frame was submitted.
func (p *FramePacer) Commit() {
	p.mu.Lock()
	p.index++
	p.mu.Unlock()
}

// Emitted returns the number of committed frames.
func (p *FramePacer) Emitted() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}
