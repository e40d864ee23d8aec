package recorder

import (
	"fmt"
	"time"
)

// EventKind classifies recorder events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventStartFailed
	EventAudioUnavailable
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStartFailed:
		return "start_failed"
	case EventAudioUnavailable:
		return "audio_unavailable"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event reports a session lifecycle change.
type Event struct {
	Kind      EventKind
	SessionID string
	Path      string
	Err       error
	At        time.Time
}

// publish sends e without blocking. Full channel drops the event.
func (r *Recorder) publish(e Event) {
	e.At = time.Now()
	select {
	case r.events <- e:
	default:
		r.eventsDropped.Add(1)
		r.logger.Warn("recorder: event dropped (channel full)",
			"kind", e.Kind.String(),
			"session_id", e.SessionID,
		)
	}
}
