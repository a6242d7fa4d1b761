package eventlog

import (
	"time"

	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/logger"
)

// Option applies a configuration option to the EventLog.
type Option func(*EventLog)

// WithCapacity sets the maximum number of events retained.
func WithCapacity(capacity int) Option {
	return func(l *EventLog) {
		if capacity > 0 {
			l.capacity = capacity
		}
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *EventLog) {
		if now != nil {
			l.now = now
		}
	}
}

// WithEnvironment sets the provider of ambient context attached to events
// that do not carry their own.
func WithEnvironment(env func() *model.Environment) Option {
	return func(l *EventLog) {
		l.env = env
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(l *EventLog) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithConsoleDiagnostics echoes every recorded event to the logger at debug
// level. Meant for development builds.
func WithConsoleDiagnostics(enabled bool) Option {
	return func(l *EventLog) {
		l.echo = enabled
	}
}

// WithObserver registers the rate observer notified by the spawn and tap trackers.
func WithObserver(o RateObserver) Option {
	return func(l *EventLog) {
		l.observer = o
	}
}
