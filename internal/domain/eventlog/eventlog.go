// Package eventlog implements the in-memory diagnostic event ring buffer.
//
// The log is append-only and capacity-bounded: once full, each new event
// overwrites the oldest one. Reads work on a snapshot taken under the read
// lock, so callers can iterate without holding up writers.
package eventlog

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/logger"
	"github.com/okian/tapdiag/pkg/metrics"
)

// DefaultCapacity is the number of events kept when no capacity is configured.
const DefaultCapacity = 1000

// RateObserver receives the raw notifications the rate metrics are derived from.
type RateObserver interface {
	ObserveSpawn(ctx context.Context)
	ObserveTap(ctx context.Context, latency time.Duration)
}

// Filter selects events in Query. Zero fields match everything; Limit keeps
// only the most recent Limit matches.
type Filter struct {
	Kind     model.Kind
	Category string
	Limit    int
}

func (f Filter) match(e *model.Event) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	return true
}

// EventLog is a fixed-capacity ring buffer of events.
type EventLog struct {
	mu       sync.RWMutex
	buf      []model.Event
	head     int // index of the oldest event
	size     int
	capacity int
	seq      uint64

	now      func() time.Time
	env      func() *model.Environment
	observer RateObserver
	echo     bool
	logger   logger.Logger
}

// New creates an event log.
func New(opts ...Option) *EventLog {
	l := &EventLog{
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Named("eventlog")
	}
	l.buf = make([]model.Event, l.capacity)

	metrics.UpdateEventLogCapacity(l.capacity)
	metrics.UpdateEventLogSize(0)

	return l
}

// Record completes a partial event and appends it. Caller-supplied ID and
// Timestamp are kept; Kind defaults to info and Category to general. Data is
// stored JSON-shaped, so what Record returns equals what an export parses
// back to. When the buffer is full the oldest event is evicted. Record never
// fails.
func (l *EventLog) Record(ctx context.Context, partial model.Event) model.Event {
	e := partial
	data, coerced := normalizePayload(e.Data)
	e.Data = data
	if len(coerced) > 0 {
		metrics.RecordEventPayloadCoerced()
		l.logger.Warn(ctx, "event payload not JSON encodable, stored as text",
			logger.String("message", e.Message),
			logger.Any("keys", coerced),
		)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == 0 {
		e.Timestamp = l.now().UnixMilli()
	}
	if e.Kind == "" {
		e.Kind = model.KindInfo
	}
	if e.Category == "" {
		e.Category = model.CategoryGeneral
	}
	if e.Environment == nil && l.env != nil {
		e.Environment = l.env()
	}

	l.mu.Lock()
	l.seq++
	e.Seq = l.seq
	evicted := false
	if l.size < l.capacity {
		l.buf[(l.head+l.size)%l.capacity] = e
		l.size++
	} else {
		l.buf[l.head] = e
		l.head = (l.head + 1) % l.capacity
		evicted = true
	}
	size := l.size
	l.mu.Unlock()

	metrics.RecordEventRecorded(string(e.Kind))
	metrics.UpdateEventLogSize(size)
	if evicted {
		metrics.RecordEventEvicted()
	}

	if l.echo {
		l.logger.Debug(ctx, "["+string(e.Kind)+"] "+e.Category+": "+e.Message,
			logger.Uint64("seq", e.Seq),
			logger.Any("data", e.Data),
		)
	}
	return e
}

// Query yields matching events newest first. The result reflects the buffer at
// call time; later writes are not observed by an in-progress iteration.
func (l *EventLog) Query(_ context.Context, f Filter) iter.Seq[model.Event] {
	l.mu.RLock()
	matches := make([]model.Event, 0, l.queryHint(f))
	for i := l.size - 1; i >= 0; i-- {
		e := &l.buf[(l.head+i)%l.capacity]
		if !f.match(e) {
			continue
		}
		matches = append(matches, *e)
		if f.Limit > 0 && len(matches) == f.Limit {
			break
		}
	}
	l.mu.RUnlock()

	return slices.Values(matches)
}

func (l *EventLog) queryHint(f Filter) int {
	if f.Limit > 0 && f.Limit < l.size {
		return f.Limit
	}
	return l.size
}

// List collects Query into a slice.
func (l *EventLog) List(ctx context.Context, f Filter) []model.Event {
	return slices.Collect(l.Query(ctx, f))
}

// Since returns events with Seq greater than seq, oldest first.
func (l *EventLog) Since(_ context.Context, seq uint64) []model.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Event
	for i := 0; i < l.size; i++ {
		e := l.buf[(l.head+i)%l.capacity]
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot returns every buffered event in insertion order.
func (l *EventLog) Snapshot(_ context.Context) []model.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Event, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.head+i)%l.capacity]
	}
	return out
}

// Clear empties the buffer. Sequence numbers keep increasing across clears.
func (l *EventLog) Clear(ctx context.Context) {
	l.mu.Lock()
	clear(l.buf)
	l.head = 0
	l.size = 0
	l.mu.Unlock()

	metrics.RecordEventLogCleared()
	metrics.UpdateEventLogSize(0)
	l.logger.Debug(ctx, "event log cleared")
}

// Len returns the number of buffered events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Cap returns the buffer capacity.
func (l *EventLog) Cap() int {
	return l.capacity
}

// LastSeq returns the sequence number of the most recently recorded event.
func (l *EventLog) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}
