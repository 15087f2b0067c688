package queue

// Channel gives a Queue a stable identity that the rest of the program holds
// on to, independent of how the queue stores its items.
type Channel[T any] struct {
	inner *Queue[T]
}

// NewChannel returns a channel backed by a queue of the given capacity.
func NewChannel[T any](capacity int) *Channel[T] {
	return &Channel[T]{inner: New[T](capacity)}
}

// Write is TryWrite on the underlying queue.
func (c *Channel[T]) Write(v T) bool { return c.inner.TryWrite(v) }

// Read is TryRead on the underlying queue.
func (c *Channel[T]) Read() (T, bool) { return c.inner.TryRead() }

// Drain empties the channel, handing every remaining item to clean in FIFO
// order. clean may be nil.
func (c *Channel[T]) Drain(clean func(T)) int {
	n := 0
	for {
		v, ok := c.inner.TryRead()
		if !ok {
			return n
		}
		if clean != nil {
			clean(v)
		}
		n++
	}
}

func (c *Channel[T]) Len() int { return c.inner.Len() }

func (c *Channel[T]) Cap() int { return c.inner.Cap() }
