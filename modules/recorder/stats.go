package recorder

import (
	"time"

	"github.com/john-rocky/ObjectMeasurement/modules/recorder/internal/fpsstats"
)

// CadenceStats describes the timing of the live frames a session received.
type CadenceStats = fpsstats.Stats

// Stats is a snapshot of recorder counters.
type Stats struct {
	State     State
	SessionID string
	Sessions  uint64

	FramesOffered        uint64
	FramesReceived       uint64
	FramesEmitted        uint64
	FramesDropped        uint64
	DroppedNotReady      uint64
	DroppedPoolExhausted uint64
	InboxOverwrites      uint64
	PoolInUse            int

	LastPTS time.Duration
	Audio   bool

	Source        CadenceStats
	EventsDropped uint64
}

// Stats returns counters for the current session, or for the last finished
// one while Idle.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	state := r.state
	s := r.current
	r.mu.Unlock()

	if s != nil {
		return r.sessionStats(s, state)
	}
	if last := r.lastStats.Load(); last != nil {
		st := *last
		st.State = state
		st.Sessions = r.sessions.Load()
		st.EventsDropped = r.eventsDropped.Load()
		return st
	}
	return Stats{State: state, EventsDropped: r.eventsDropped.Load()}
}

func (r *Recorder) sessionStats(s *session, state State) Stats {
	return Stats{
		State:                state,
		SessionID:            s.id,
		Sessions:             r.sessions.Load(),
		FramesOffered:        s.offered.Load(),
		FramesReceived:       s.received.Load(),
		FramesEmitted:        s.pacer.Emitted(),
		FramesDropped:        s.dropped(),
		DroppedNotReady:      s.droppedBusy.Load(),
		DroppedPoolExhausted: s.droppedPool.Load(),
		InboxOverwrites:      s.inbox.Overwrites(),
		PoolInUse:            s.pool.InUse(),
		LastPTS:              time.Duration(s.lastPTS.Load()),
		Audio:                s.audio != nil,
		Source:               s.cadence.Stats(),
		EventsDropped:        r.eventsDropped.Load(),
	}
}
