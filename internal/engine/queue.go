package engine

import (
	"sync"

	"github.com/roach88/seedsindex/internal/ledger"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeLive is an update delivered by the live subscription.
	EventTypeLive EventType = iota + 1
	// EventTypeBootstrap is a value read during the bootstrap scan.
	EventTypeBootstrap
	// EventTypeBootstrapDone follows the last bootstrap result.
	EventTypeBootstrapDone
)

func (t EventType) String() string {
	switch t {
	case EventTypeLive:
		return "live"
	case EventTypeBootstrap:
		return "bootstrap"
	case EventTypeBootstrapDone:
		return "bootstrap_done"
	default:
		return "unknown"
	}
}

// Event is one (key, value) pair waiting to be applied to the cache.
type Event struct {
	Type  EventType
	Key   ledger.Key
	Value string
	Block uint64
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so neither the subscription forwarder nor the
// bootstrap fetchers ever block on the apply loop.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
