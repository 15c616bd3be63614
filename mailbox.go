package socketry

import (
	"sync"

	"github.com/eapache/queue"
)

// mailbox is an unbounded FIFO queue connecting session handles to their
// actor. Enqueueing never blocks. Once the mailbox is closed, enqueued
// values are silently discarded.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	signal chan struct{}
	closed bool
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{
		items:  queue.New(),
		signal: make(chan struct{}, 1),
	}
}

func (m *mailbox[T]) put(v T) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.items.Add(v)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if m.items.Length() == 0 {
		return zero, false
	}
	return m.items.Remove().(T), true
}

// wait returns a channel that receives whenever new items may be available.
// The consumer must drain with take until it reports empty before waiting
// again.
func (m *mailbox[T]) wait() <-chan struct{} {
	return m.signal
}

func (m *mailbox[T]) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for m.items.Length() > 0 {
		m.items.Remove()
	}
}
