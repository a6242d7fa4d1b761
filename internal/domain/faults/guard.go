package faults

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/metrics"
)

// Guard runs fn and reports a returned error or a panic to sink as a fault
// tagged with op. It never propagates either; the returned bool reports
// whether fn completed without failure.
func Guard(ctx context.Context, sink Sink, op string, fn func(ctx context.Context) error) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ok = false
		metrics.RecordPanicRecovered()
		report(ctx, sink, model.Fault{
			Category:   model.CategoryGameLogic,
			Message:    fmt.Sprint(r),
			StackTrace: string(debug.Stack()),
			Data:       map[string]any{"context": op, "panic": true},
		})
	}()

	if err := fn(ctx); err != nil {
		report(ctx, sink, model.Fault{
			Category:   model.CategoryGameLogic,
			Message:    err.Error(),
			StackTrace: string(debug.Stack()),
			Data:       map[string]any{"context": op},
		})
		return false
	}
	return true
}

func report(ctx context.Context, sink Sink, f model.Fault) {
	if sink == nil {
		return
	}
	// A failing sink must not turn a recovered fault into a new panic.
	defer func() { _ = recover() }()
	sink.Report(ctx, f)
}
