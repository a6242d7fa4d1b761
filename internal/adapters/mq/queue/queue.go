// Package queue buffers faults between the reporting side and the goroutine
// that records them.
//
// Enqueue never blocks: a full or closed queue rejects the fault and counts
// the drop, so a burst of client reports cannot stall request handlers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Drop reasons reported on the dropped-faults counter.
const (
	dropClosed   = "closed"
	dropFull     = "queue_full"
	dropCanceled = "context_canceled"
)

// Fault is the payload flowing through the queue.
type Fault = model.Fault

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a fault. It returns false if the fault was not accepted.
	Enqueue(ctx context.Context, f Fault) bool

	// Dequeue returns a channel receiving faults as they become available.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Fault

	// Len returns the number of queued faults.
	Len(ctx context.Context) int

	// Close stops accepting faults. Queued faults can still be dequeued.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	faults   chan Fault
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates an in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.faults = make(chan Fault, q.capacity)

	metrics.UpdateFaultQueueCapacity(q.capacity)
	metrics.UpdateFaultQueueSize(0)
	return q
}

// Enqueue adds a fault without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Fault) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordFaultDropped(dropClosed)
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordFaultDropped(dropCanceled)
		return false
	}

	select {
	case q.faults <- f:
		metrics.UpdateFaultQueueSize(len(q.faults))
		return true
	default:
		metrics.RecordFaultDropped(dropFull)
		return false
	}
}

// Report implements faults.Sink by enqueuing f.
func (q *InMemoryQueue) Report(ctx context.Context, f Fault) bool {
	return q.Enqueue(ctx, f)
}

// Dequeue returns a channel that receives queued faults until the queue is
// closed and drained or ctx is done.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Fault {
	out := make(chan Fault)
	go func() {
		defer close(out)
		for f := range q.faults {
			select {
			case out <- f:
				metrics.UpdateFaultQueueSize(len(q.faults))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of queued faults.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.faults)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting new faults. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.faults)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
