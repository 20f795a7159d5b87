// Package queue provides the unbounded blocking queue that merges the
// server stream and the decision-process bridge into one ordered feed.
package queue

import "sync"

// Queue is an unbounded FIFO with many producers and one consumer.
// Enqueue never blocks. Dequeue blocks until an item arrives or the queue
// is closed and drained.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *ring[T]
	closed bool
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{items: newRing[T](minRingCapacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends an item. It returns false if the queue is closed.
func (q *Queue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items.push(item)
	q.mu.Unlock()

	q.cond.Signal()
	return true
}

// Dequeue removes the oldest item, waiting for one if the queue is empty.
// Items enqueued before Close are still returned; once the queue is closed
// and empty, Dequeue returns the zero value and false.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.len() == 0 && !q.closed {
		q.cond.Wait()
	}
	return q.items.pop()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.len()
}

// Close stops accepting items and wakes every waiting consumer.
// Calling Close more than once is safe.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
