// Package faults turns runtime failures observed by the host into error
// events. The host wires its own failure hooks to a Sink; nothing in this
// package registers platform handlers itself.
package faults

import (
	"context"

	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/metrics"
)

// Sink accepts faults. Report returns false when the fault was not accepted,
// for example because a queue in front of the log is full. It never blocks
// on downstream work and never panics.
type Sink interface {
	Report(ctx context.Context, f model.Fault) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f model.Fault) bool

// Report calls fn.
func (fn SinkFunc) Report(ctx context.Context, f model.Fault) bool { return fn(ctx, f) }

// Recorder is the subset of the event log a sink writes into.
type Recorder interface {
	Record(ctx context.Context, e model.Event) model.Event
}

// RecorderSink records every fault as an error event.
type RecorderSink struct {
	rec Recorder
}

// NewRecorderSink creates a sink writing into rec.
func NewRecorderSink(rec Recorder) *RecorderSink {
	return &RecorderSink{rec: rec}
}

// Report records f. It always accepts.
func (s *RecorderSink) Report(ctx context.Context, f model.Fault) bool {
	s.rec.Record(ctx, f.Event())
	metrics.RecordFaultReported()
	return true
}
