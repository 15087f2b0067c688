// Package queue implements the fixed-capacity FIFO used to hand messages from
// connection readers to the worker.
//
// Neither Queue nor Channel is safe for concurrent use. Callers serialize
// every TryWrite/TryRead behind a lock they own.
package queue

// empty is the read cursor value of a queue holding nothing.
const empty = -1

// Queue is a circular buffer of fixed capacity.
// readEnd == writeEnd means full; readEnd == empty means empty.
type Queue[T any] struct {
	data     []T
	readEnd  int
	writeEnd int
}

// New returns an empty queue holding at most capacity items.
// It panics if capacity is less than one.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		panic("queue: capacity must be at least 1")
	}
	return &Queue[T]{
		data:     make([]T, capacity),
		readEnd:  empty,
		writeEnd: 0,
	}
}

// TryWrite appends v. It returns false, leaving the queue untouched, if the
// queue is full.
func (q *Queue[T]) TryWrite(v T) bool {
	if q.writeEnd == q.readEnd {
		return false
	}
	q.data[q.writeEnd] = v
	if q.readEnd == empty {
		q.readEnd = q.writeEnd
	}
	q.writeEnd = (q.writeEnd + 1) % len(q.data)
	return true
}

// TryRead removes and returns the oldest item. ok is false if the queue is
// empty.
func (q *Queue[T]) TryRead() (v T, ok bool) {
	if q.readEnd == empty {
		return v, false
	}
	v = q.data[q.readEnd]
	var zero T
	q.data[q.readEnd] = zero
	q.readEnd = (q.readEnd + 1) % len(q.data)
	if q.readEnd == q.writeEnd {
		q.readEnd = empty
	}
	return v, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	switch {
	case q.readEnd == empty:
		return 0
	case q.writeEnd > q.readEnd:
		return q.writeEnd - q.readEnd
	default:
		return len(q.data) - q.readEnd + q.writeEnd
	}
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int { return len(q.data) }
