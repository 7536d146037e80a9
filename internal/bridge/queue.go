package bridge

import (
	"sync"

	"github.com/roach88/navbridge/internal/wire"
)

// itemType distinguishes loop work items.
type itemType int

const (
	// itemHostEvent is an event emitted by the host.
	itemHostEvent itemType = iota + 1
	// itemTask is a closure that must run on the loop (map mutation,
	// call-reply continuation).
	itemTask
)

// item is one unit of loop work.
type item struct {
	Type  itemType
	Event wire.Event
	Task  func()
}

// loopQueue is an unbounded FIFO of loop work.
//
// Channel callbacks arrive on arbitrary goroutines and must never block,
// so Enqueue always succeeds until Close. The signal channel (buffer of 1)
// lets Run wait with select alongside ctx.Done.
type loopQueue struct {
	mu     sync.Mutex
	items  []item
	closed bool
	signal chan struct{}
}

func newLoopQueue() *loopQueue {
	return &loopQueue{
		items:  make([]item, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends it. Returns false once the queue is closed.
func (q *loopQueue) Enqueue(it item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, it)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front item without blocking.
func (q *loopQueue) TryDequeue() (item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item{}, false
	}
	it := q.items[0]
	// Release references held by the backing array.
	q.items[0] = item{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return it, true
}

// Wait returns a channel that signals possible availability.
// It is closed when the queue closes.
func (q *loopQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued items.
func (q *loopQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further items and wakes waiters. Idempotent.
func (q *loopQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close was called.
func (q *loopQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
