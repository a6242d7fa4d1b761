package sampler

import (
	"time"

	"github.com/okian/tapdiag/pkg/logger"
)

// Option applies a configuration option to the Sampler.
type Option func(*Sampler)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(s *Sampler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRecorder sets where warning events are written.
func WithRecorder(r Recorder) Option {
	return func(s *Sampler) {
		s.recorder = r
	}
}

// WithFrameWindow sets the frame-rate measurement window.
func WithFrameWindow(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.frameWindow = d
		}
	}
}

// WithSpawnWindow sets the spawn-rate measurement window.
func WithSpawnWindow(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.spawnWindow = d
		}
	}
}

// WithLowFrameRateThreshold sets the frame rate below which a warning is recorded.
func WithLowFrameRateThreshold(fps float64) Option {
	return func(s *Sampler) {
		if fps > 0 {
			s.lowFrameRate = fps
		}
	}
}

// WithHighSpawnRateThreshold sets the spawn rate above which a warning is recorded.
func WithHighSpawnRateThreshold(rate float64) Option {
	return func(s *Sampler) {
		if rate > 0 {
			s.highSpawnRate = rate
		}
	}
}

// WithMemoryReader sets the function sampled for memory usage when a frame
// window closes. Nil disables memory sampling.
func WithMemoryReader(read func() uint64) Option {
	return func(s *Sampler) {
		s.readMemory = read
	}
}

// WithTickerFactory sets how Run creates its ticker.
func WithTickerFactory(f TickerFactory) Option {
	return func(s *Sampler) {
		if f != nil {
			s.newTicker = f
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.logger = l
		}
	}
}
