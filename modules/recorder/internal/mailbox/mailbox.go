// Package mailbox is a single-slot inbox with overwrite semantics.
//
// Put never blocks: a new item replaces an unconsumed one and the overwrite is
// counted. Take blocks until an item is available or the mailbox is closed.
package mailbox

import (
	"sync"
	"sync/atomic"
)

// Mailbox holds at most one pending item.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	item   T
	full   bool
	closed bool

	overwrites atomic.Uint64
}

// New returns an empty mailbox.
func New[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put stores v, replacing any pending item. Returns false after Close.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	if m.full {
		m.overwrites.Add(1)
	}
	m.item = v
	m.full = true
	m.cond.Signal()
	return true
}

// Take waits for an item. Returns false once the mailbox is closed; a
// pending item is discarded by Close.
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for !m.full && !m.closed {
		m.cond.Wait()
	}

	var zero T
	if m.closed {
		return zero, false
	}
	v := m.item
	m.item = zero
	m.full = false
	return v, true
}

// Close wakes all waiters. Idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	var zero T
	m.closed = true
	m.item = zero
	m.full = false
	m.cond.Broadcast()
}

// Overwrites returns how many pending items were replaced before being taken.
func (m *Mailbox[T]) Overwrites() uint64 {
	return m.overwrites.Load()
}
