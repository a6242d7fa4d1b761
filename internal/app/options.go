package service

import (
	"time"

	"github.com/okian/tapdiag/internal/config"
	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/internal/domain/sampler"
	"github.com/okian/tapdiag/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMaxEvents sets the event log capacity.
func WithMaxEvents(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxEvents = n
		}
	}
}

// WithFaultQueueSize sets the capacity of the fault queue.
func WithFaultQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.faultQueueSize = size
		}
	}
}

// WithDedupeSize sets how many fault report IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSamplerWindows sets the frame-rate and spawn-rate windows. Zero keeps
// the sampler default.
func WithSamplerWindows(frame, spawn time.Duration) Option {
	return func(s *Service) {
		s.frameWindow = frame
		s.spawnWindow = spawn
	}
}

// WithSamplerThresholds sets the low frame rate and high spawn rate warning
// thresholds. Zero keeps the sampler default.
func WithSamplerThresholds(lowFrameRate, highSpawnRate float64) Option {
	return func(s *Service) {
		s.lowFrameRate = lowFrameRate
		s.highSpawnRate = highSpawnRate
	}
}

// WithFramePump makes Init start a goroutine feeding the sampler one frame
// per interval. Zero disables it and the host calls Frame itself.
func WithFramePump(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.framePump = interval
		}
	}
}

// WithAnalysisLatency sets the simulated analyzer latency.
func WithAnalysisLatency(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.analysisLatency = d
		}
	}
}

// WithAlertVariance sets the variance threshold used when a caller does not
// pass its own analysis config. Non-positive values keep the default, the
// same way an unset threshold in a request config does.
func WithAlertVariance(v float64) Option {
	return func(s *Service) {
		if v > 0 {
			s.alertVariance = v
		}
	}
}

// WithConsoleDiagnostics echoes recorded events to the logger.
func WithConsoleDiagnostics(enabled bool) Option {
	return func(s *Service) {
		s.consoleDiagnostics = enabled
	}
}

// WithEnvironment sets the provider stamped onto recorded events.
func WithEnvironment(env func() *model.Environment) Option {
	return func(s *Service) {
		s.environment = env
	}
}

// WithClock sets the time source shared by all components.
func WithClock(c sampler.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTickerFactory sets how the frame pump creates its ticker.
func WithTickerFactory(f sampler.TickerFactory) Option {
	return func(s *Service) {
		s.tickerFactory = f
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig applies every service setting carried by cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		for _, opt := range []Option{
			WithMaxEvents(cfg.MaxEvents),
			WithFaultQueueSize(cfg.FaultQueueSize),
			WithDedupeSize(cfg.DedupeSize),
			WithSamplerWindows(cfg.FrameWindow(), cfg.SpawnWindow()),
			WithSamplerThresholds(cfg.LowFrameRate, cfg.HighSpawnRate),
			WithFramePump(cfg.FramePumpInterval()),
			WithAnalysisLatency(cfg.AnalysisLatency()),
			WithAlertVariance(cfg.AlertVariance),
			WithConsoleDiagnostics(cfg.IsDevelopment()),
		} {
			opt(s)
		}
	}
}
