package queue

const minRingCapacity = 16

// ring is a circular buffer that doubles its capacity when full.
// It is not safe for concurrent use; Queue guards it.
type ring[T any] struct {
	buf  []T
	head int // next read position
	size int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < minRingCapacity {
		capacity = minRingCapacity
	}
	return &ring[T]{buf: make([]T, capacity)}
}

// push appends an item at the tail.
func (r *ring[T]) push(item T) {
	if r.size == len(r.buf) {
		r.grow()
	}
	r.buf[(r.head+r.size)%len(r.buf)] = item
	r.size++
}

// pop removes the item at the head.
func (r *ring[T]) pop() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	item := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.size--
	return item, true
}

func (r *ring[T]) len() int { return r.size }

// grow copies the items into a buffer twice the size, in chronological order.
func (r *ring[T]) grow() {
	next := make([]T, len(r.buf)*2)
	n := copy(next, r.buf[r.head:])
	copy(next[n:], r.buf[:r.head])
	r.buf = next
	r.head = 0
}
