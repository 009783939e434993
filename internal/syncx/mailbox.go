// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// Mailbox is a single-slot hand-off that keeps only the latest value.
// Values are delivered in Put order; a slow receiver sees gaps, never reordering.
type Mailbox[T any] struct {
	mu      sync.Mutex
	ch      chan T
	closed  bool
	dropped uint64
}

// NewMailbox creates an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1)}
}

// Put stores v, replacing any value not yet received.
// Returns true if a pending value was dropped. Put after Close is a no-op.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	dropped := false
	select {
	case <-m.ch:
		dropped = true
		m.dropped++
	default:
	}
	m.ch <- v
	return dropped
}

// C returns the receive side. It is closed by Close.
func (m *Mailbox[T]) C() <-chan T {
	return m.ch
}

// Dropped returns how many values were coalesced away.
func (m *Mailbox[T]) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Close closes the receive channel. A pending value is still delivered.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
}
