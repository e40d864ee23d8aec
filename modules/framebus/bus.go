// Package framebus fans captured frames out to several consumers.
//
// Publish never blocks: a subscriber whose channel is full misses the frame
// and the drop is counted. Measurement and recording each keep their own
// pace this way, and a slow encoder never stalls the capture callback.
//
//	bus := framebus.New()
//	defer bus.Close()
//
//	measureCh := make(chan arframe.Frame, 2)
//	bus.Subscribe("measure", measureCh)
//
//	for frame := range frames {
//	    bus.Publish(frame)
//	}
package framebus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("framebus: subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with an unknown id.
	ErrSubscriberNotFound = errors.New("framebus: subscriber id not found")

	// ErrBusClosed is returned by operations on a closed bus.
	ErrBusClosed = errors.New("framebus: bus is closed")

	// ErrNilChannel is returned when Subscribe is given a nil channel.
	ErrNilChannel = errors.New("framebus: subscriber channel cannot be nil")
)

// Stats is a snapshot of bus counters.
type Stats struct {
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
	Subscribers    map[string]SubscriberStats
}

// SubscriberStats counts deliveries for one subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

type subscriber struct {
	ch      chan<- arframe.Frame
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus distributes frames to subscribers. Safe for concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool

	totalPublished atomic.Uint64
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string]*subscriber)}
}

// Subscribe registers ch under id. The bus never closes ch.
func (b *Bus) Subscribe(id string, ch chan<- arframe.Frame) error {
	if ch == nil {
		return ErrNilChannel
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	b.subscribers[id] = &subscriber{ch: ch}
	return nil
}

// Unsubscribe removes id. No frame is sent to it after return.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	return nil
}

// Publish offers frame to every subscriber without blocking. A closed bus
// ignores the frame.
func (b *Bus) Publish(frame arframe.Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.totalPublished.Add(1)

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- frame:
			sub.sent.Add(1)
		default:
			sub.dropped.Add(1)
		}
	}
}

// Stats returns a snapshot of the counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := Stats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats, len(b.subscribers)),
	}
	for id, sub := range b.subscribers {
		s := SubscriberStats{Sent: sub.sent.Load(), Dropped: sub.dropped.Load()}
		out.Subscribers[id] = s
		out.TotalSent += s.Sent
		out.TotalDropped += s.Dropped
	}
	return out
}

// Close detaches all subscribers. Idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subscribers = nil
	return nil
}
