// Package queue provides the blocking FIFO that connects the render
// thread to the completion dispatcher.
//
// The queue is unbounded, multi-producer and single-consumer. Producers
// push and never block; the consumer blocks in Pop until an item arrives
// or the queue is closed. Closing is the only cancellation mechanism:
// Pop drains every item pushed before Close and then reports closure, so
// the consumer never observes items out of order and never loses one.
package queue

import "sync"

// FIFO is a thread-safe blocking first-in-first-out queue.
//
// The zero value is not usable; create queues with New.
type FIFO[T any] struct {
	mu     sync.Mutex
	nempty *sync.Cond
	items  []T
	closed bool
}

// New creates an empty open queue.
func New[T any]() *FIFO[T] {
	q := &FIFO[T]{}
	q.nempty = sync.NewCond(&q.mu)
	return q
}

// Push appends an item. Push never blocks. Items pushed after Close are
// dropped.
func (q *FIFO[T]) Push(item T) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.nempty.Signal()
}

// Pop removes and returns the oldest item, blocking while the queue is
// empty. Once the queue has been closed and drained, Pop returns the zero
// value and ok=false; every subsequent call does the same.
func (q *FIFO[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.nempty.Wait()
	}
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item = q.items[0]
	// Shift rather than reslice so the backing array is reused instead of
	// growing without bound across the queue's lifetime.
	n := copy(q.items, q.items[1:])
	var zero T
	q.items[n] = zero
	q.items = q.items[:n]
	return item, true
}

// Close marks the queue as closed and wakes the consumer. Items already
// queued remain poppable; Close is idempotent.
func (q *FIFO[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.nempty.Broadcast()
}

// Len returns the number of queued items.
func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
