package worker

import (
	"github.com/okian/tapdiag/pkg/logger"
)

// Option applies a configuration option to the FaultWorker.
type Option func(*FaultWorker)

// WithName sets the worker name used for its logger.
func WithName(name string) Option {
	return func(w *FaultWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *FaultWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
