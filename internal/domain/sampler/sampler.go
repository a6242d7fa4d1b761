// Package sampler derives frame-rate, spawn-rate and touch-latency metrics
// from raw notifications.
//
// Windows are evaluated when a notification arrives, never on a timer: the
// frame rate is the frame count divided by the frame window in seconds, and
// the spawn rate is the spawn count divided by the spawn window in seconds. Crossing a threshold records a warning event.
package sampler

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/logger"
	"github.com/okian/tapdiag/pkg/metrics"
)

// Defaults.
const (
	DefaultFrameWindow       = time.Second
	DefaultSpawnWindow       = 2 * time.Second
	DefaultLowFrameRate      = 30.0
	DefaultHighSpawnRate     = 8.0
	warnReasonLowFrameRate   = "low_frame_rate"
	warnReasonHighSpawnRate  = "high_spawn_rate"
	msgLowFrameRateDetected  = "Low frame rate detected"
	msgHighSpawnRateDetected = "High object spawn rate detected"
)

// Recorder receives warning events.
type Recorder interface {
	Record(ctx context.Context, e model.Event) model.Event
}

// Sampler holds the rolling counters and the derived metrics.
type Sampler struct {
	mu         sync.Mutex
	current    model.PerformanceMetrics
	frameCount int
	frameStart time.Time
	spawnCount int
	spawnStart time.Time

	clock         Clock
	recorder      Recorder
	frameWindow   time.Duration
	spawnWindow   time.Duration
	lowFrameRate  float64
	highSpawnRate float64
	readMemory    func() uint64
	newTicker     TickerFactory
	logger        logger.Logger
}

// New creates a sampler. Both windows start at the clock's current time.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		clock:         RealClock(),
		frameWindow:   DefaultFrameWindow,
		spawnWindow:   DefaultSpawnWindow,
		lowFrameRate:  DefaultLowFrameRate,
		highSpawnRate: DefaultHighSpawnRate,
		readMemory:    heapInUse,
		newTicker:     NewRealTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("sampler")
	}

	now := s.clock.Now()
	s.frameStart = now
	s.spawnStart = now
	return s
}

// Frame counts one rendered frame. When the frame window has elapsed the
// count per second of window becomes the frame rate and a new window starts.
func (s *Sampler) Frame(ctx context.Context) {
	s.mu.Lock()
	s.frameCount++
	now := s.clock.Now()
	if now.Sub(s.frameStart) < s.frameWindow {
		s.mu.Unlock()
		return
	}
	rate := float64(s.frameCount) / s.frameWindow.Seconds()
	s.current.FrameRate = rate
	s.frameCount = 0
	s.frameStart = now
	var mem uint64
	if s.readMemory != nil {
		mem = s.readMemory()
		s.current.MemoryUsage = mem
	}
	s.mu.Unlock()

	metrics.UpdateFrameRate(rate)
	if mem > 0 {
		metrics.UpdateMemoryUsage(mem)
	}

	if rate < s.lowFrameRate {
		s.warn(ctx, warnReasonLowFrameRate, msgLowFrameRateDetected, map[string]any{"frameRate": rate})
	}
}

// ObserveSpawn counts one spawn notification. A batch spawn counts once.
func (s *Sampler) ObserveSpawn(ctx context.Context) {
	s.mu.Lock()
	s.spawnCount++
	now := s.clock.Now()
	if now.Sub(s.spawnStart) < s.spawnWindow {
		s.mu.Unlock()
		return
	}
	rate := float64(s.spawnCount) / s.spawnWindow.Seconds()
	s.current.ObjectSpawnRate = rate
	s.spawnCount = 0
	s.spawnStart = now
	s.mu.Unlock()

	metrics.UpdateObjectSpawnRate(rate)

	if rate > s.highSpawnRate {
		s.warn(ctx, warnReasonHighSpawnRate, msgHighSpawnRateDetected, map[string]any{"spawnRate": rate})
	}
}

// ObserveTap stores the latency of the latest tap. There is no averaging.
func (s *Sampler) ObserveTap(_ context.Context, latency time.Duration) {
	ms := float64(latency) / float64(time.Millisecond)
	s.mu.Lock()
	s.current.TouchLatency = ms
	s.mu.Unlock()

	metrics.UpdateTouchLatency(ms)
}

// Reset zeroes the spawn counter, spawn rate and touch latency and restarts
// the spawn window. The frame rate keeps running.
func (s *Sampler) Reset(ctx context.Context) {
	s.mu.Lock()
	s.spawnCount = 0
	s.spawnStart = s.clock.Now()
	s.current.ObjectSpawnRate = 0
	s.current.TouchLatency = 0
	s.mu.Unlock()

	metrics.UpdateObjectSpawnRate(0)
	metrics.UpdateTouchLatency(0)
	metrics.RecordPerformanceReset()
	s.logger.Debug(ctx, "performance metrics reset")
}

// Snapshot returns a copy of the current metrics.
func (s *Sampler) Snapshot() model.PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Run calls Frame on every tick until ctx is done. It stands in for a render
// loop when the host has none.
func (s *Sampler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := s.newTicker(interval)
	defer t.Stop()

	s.logger.Debug(ctx, "frame pump started", logger.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug(ctx, "frame pump stopped")
			return
		case <-t.C():
			s.Frame(ctx)
		}
	}
}

func (s *Sampler) warn(ctx context.Context, reason, msg string, data map[string]any) {
	metrics.RecordPerformanceWarning(reason)
	if s.recorder == nil {
		s.logger.Warn(ctx, msg, logger.Any("data", data))
		return
	}
	s.recorder.Record(ctx, model.Event{
		Kind:     model.KindWarning,
		Category: model.CategoryPerformance,
		Message:  msg,
		Data:     data,
	})
}

func heapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapInuse
}
