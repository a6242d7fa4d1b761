// Package worker drains the fault queue into the event log on one goroutine.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/tapdiag/internal/adapters/mq/queue"
	"github.com/okian/tapdiag/internal/domain/faults"
	"github.com/okian/tapdiag/pkg/logger"
)

const defaultShutdownTimeout = 5 * time.Second

// Queue defines how the worker receives faults.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Fault
}

// Worker forwards queued faults to a downstream sink.
type Worker interface {
	// Run forwards faults until ctx is canceled, Shutdown is called or the
	// queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for Run to return.
	Shutdown(ctx context.Context) error
}

// FaultWorker implements Worker.
type FaultWorker struct {
	queue Queue
	sink  faults.Sink
	name  string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  chan struct{}

	logger logger.Logger
}

// NewFaultWorker creates a worker reading from q and reporting into sink.
func NewFaultWorker(q Queue, sink faults.Sink, opts ...Option) *FaultWorker {
	w := &FaultWorker{
		queue:    q,
		sink:     sink,
		name:     "fault-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		started:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run forwards faults to the sink.
func (w *FaultWorker) Run(ctx context.Context) {
	defer close(w.done)
	close(w.started)

	faultChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			w.drain(ctx, faultChan)
			return
		case f, ok := <-faultChan:
			if !ok {
				return
			}
			w.forward(ctx, f)
		}
	}
}

// drain forwards faults already handed out by the queue without waiting for
// new ones.
func (w *FaultWorker) drain(ctx context.Context, faultChan <-chan queue.Fault) {
	for {
		select {
		case f, ok := <-faultChan:
			if !ok {
				return
			}
			w.forward(ctx, f)
		default:
			return
		}
	}
}

func (w *FaultWorker) forward(ctx context.Context, f queue.Fault) {
	if !w.sink.Report(ctx, f) {
		w.logger.Warn(ctx, "fault rejected by sink",
			logger.String("report_id", f.ReportID),
			logger.String("message", f.Message),
		)
	}
}

// Done is closed when Run returns.
func (w *FaultWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown signals the worker to stop and waits for it. Calling Shutdown on
// a worker that never ran returns immediately.
func (w *FaultWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.started:
	default:
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
