package analytics

import (
	"time"

	"github.com/okian/tapdiag/pkg/logger"
)

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithClock sets the source of report and alert timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithSimulatedLatency delays every analysis by d, honoring context
// cancellation. Zero disables the delay.
func WithSimulatedLatency(d time.Duration) Option {
	return func(a *Analyzer) {
		if d >= 0 {
			a.latency = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}
