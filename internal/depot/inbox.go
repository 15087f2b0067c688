package depot

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/hami-sh/2310ass4/internal/metrics"
	"github.com/hami-sh/2310ass4/internal/queue"
)

const (
	spinAttempts  = 8
	retryInterval = 200 * time.Microsecond
)

// inbox is the single serialization point between producers (link readers,
// the signal watcher, local submissions) and the worker. The queue itself is
// unsynchronized; mu guards every access to it. ready counts queued messages
// the worker has not yet been told about.
type inbox struct {
	mu sync.Mutex
	ch *queue.Channel[*Message]

	ready   chan struct{}
	metrics *metrics.Metrics
}

func newInbox(capacity int, m *metrics.Metrics) *inbox {
	return &inbox{
		ch:      queue.NewChannel[*Message](capacity),
		ready:   make(chan struct{}, capacity),
		metrics: m,
	}
}

// tryPush enqueues msg if there is room. The work signal is sent after the
// lock is released; since every signal follows a successful write and the
// worker reads only after taking a signal, outstanding signals never exceed
// the queue capacity and the send never blocks.
func (b *inbox) tryPush(msg *Message) bool {
	b.mu.Lock()
	ok := b.ch.Write(msg)
	depth := b.ch.Len()
	b.mu.Unlock()
	if !ok {
		return false
	}
	b.metrics.QueueDepth.Set(float64(depth))
	b.ready <- struct{}{}
	return true
}

// push retries until msg is accepted or ctx is done. It never drops msg
// on a full queue.
func (b *inbox) push(ctx context.Context, msg *Message) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.tryPush(msg) {
			return nil
		}
		b.metrics.QueueRetries.Inc()
		if attempt < spinAttempts {
			runtime.Gosched()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// pop blocks until a message is available or ctx is done.
func (b *inbox) pop(ctx context.Context) (*Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.ready:
		}
		b.mu.Lock()
		msg, ok := b.ch.Read()
		depth := b.ch.Len()
		b.mu.Unlock()
		if ok {
			b.metrics.QueueDepth.Set(float64(depth))
			return msg, nil
		}
	}
}

func (b *inbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch.Len()
}

// drain discards whatever is still queued, returning how many were dropped.
func (b *inbox) drain() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch.Drain(nil)
}
