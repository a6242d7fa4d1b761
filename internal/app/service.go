// Package service wires the diagnostics components together and exposes the
// operations the HTTP API and the host depend on.
package service

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/okian/tapdiag/internal/adapters/mq/queue"
	"github.com/okian/tapdiag/internal/adapters/mq/worker"
	"github.com/okian/tapdiag/internal/domain/analytics"
	"github.com/okian/tapdiag/internal/domain/eventlog"
	"github.com/okian/tapdiag/internal/domain/faults"
	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/internal/domain/sampler"
	"github.com/okian/tapdiag/pkg/logger"
	"github.com/okian/tapdiag/pkg/metrics"
)

const drainTimeout = 5 * time.Second

// eventKeyPrefix keeps client event IDs apart from fault report IDs in the
// shared deduper.
const eventKeyPrefix = "event:"

// Service owns the event log, the performance sampler, the analyzer and the
// fault pipeline for one process.
type Service struct {
	mu sync.RWMutex

	// Core components
	events   *eventlog.EventLog
	sampler  *sampler.Sampler
	analyzer *analytics.Analyzer
	deduper  faults.Deduper
	faultQ   *queue.InMemoryQueue
	faultW   *worker.FaultWorker

	// Configuration
	maxEvents          int
	faultQueueSize     int
	dedupeSize         int
	frameWindow        time.Duration
	spawnWindow        time.Duration
	lowFrameRate       float64
	highSpawnRate      float64
	framePump          time.Duration
	analysisLatency    time.Duration
	alertVariance      float64
	consoleDiagnostics bool
	environment        func() *model.Environment
	clock              sampler.Clock
	tickerFactory      sampler.TickerFactory

	// State
	started  bool
	cancel   context.CancelFunc
	pumpDone chan struct{}

	logger logger.Logger
}

// New constructs a Service. Nothing runs until Init.
func New(opts ...Option) *Service {
	s := &Service{
		maxEvents:      eventlog.DefaultCapacity,
		faultQueueSize: 1024,
		dedupeSize:     10000,
		alertVariance:  analytics.DefaultConfig().AlertThresholds.Variance,
		clock:          sampler.RealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init builds and starts the components. Calling it again while started is a
// no-op.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting diagnostics service...")

	env := s.environment
	if env == nil {
		env = hostEnvironment()
	}

	s.events = eventlog.New(
		eventlog.WithCapacity(s.maxEvents),
		eventlog.WithClock(s.clock.Now),
		eventlog.WithEnvironment(env),
		eventlog.WithConsoleDiagnostics(s.consoleDiagnostics),
	)

	samplerOpts := []sampler.Option{
		sampler.WithClock(s.clock),
		sampler.WithRecorder(s.events),
		sampler.WithFrameWindow(s.frameWindow),
		sampler.WithSpawnWindow(s.spawnWindow),
		sampler.WithLowFrameRateThreshold(s.lowFrameRate),
		sampler.WithHighSpawnRateThreshold(s.highSpawnRate),
	}
	if s.tickerFactory != nil {
		samplerOpts = append(samplerOpts, sampler.WithTickerFactory(s.tickerFactory))
	}
	s.sampler = sampler.New(samplerOpts...)
	s.events.SetObserver(s.sampler)

	s.analyzer = analytics.NewAnalyzer(
		analytics.WithClock(s.clock.Now),
		analytics.WithSimulatedLatency(s.analysisLatency),
	)
	s.deduper = faults.NewDeduper(faults.WithMaxSize(s.dedupeSize))
	s.faultQ = queue.NewInMemoryQueue(queue.WithCapacity(s.faultQueueSize))
	s.faultW = worker.NewFaultWorker(s.faultQ, faults.NewRecorderSink(s.events))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.faultW.Run(runCtx)

	s.pumpDone = make(chan struct{})
	if s.framePump > 0 {
		go func(done chan struct{}) {
			defer close(done)
			s.sampler.Run(runCtx, s.framePump)
		}(s.pumpDone)
	} else {
		close(s.pumpDone)
	}

	s.started = true
	s.logger.Info(ctx, "diagnostics service started",
		logger.Int("maxEvents", s.maxEvents),
		logger.Int("faultQueueSize", s.faultQueueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("framePump", s.framePump),
	)
	return nil
}

// Shutdown stops the fault pipeline and the frame pump. Faults already queued
// are recorded before it returns. The components stay readable afterwards.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping diagnostics service...")

	_ = s.faultQ.Close()

	t := time.NewTimer(drainTimeout)
	select {
	case <-s.faultW.Done():
	case <-t.C:
		s.logger.Warn(ctx, "fault queue did not drain in time",
			logger.Int("pending", s.faultQ.Len(ctx)),
		)
		_ = s.faultW.Shutdown(ctx)
	}
	t.Stop()

	s.cancel()
	<-s.pumpDone

	s.started = false
	s.logger.Info(ctx, "diagnostics service stopped")
}

// Started reports whether Init has run and Shutdown has not.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// EventLog returns the event log, or nil before Init.
func (s *Service) EventLog() *eventlog.EventLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events
}

// Sampler returns the performance sampler, or nil before Init.
func (s *Service) Sampler() *sampler.Sampler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sampler
}

// Analyzer returns the distribution analyzer, or nil before Init.
func (s *Service) Analyzer() *analytics.Analyzer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analyzer
}

// FaultSink returns the sink host failure hooks should report into. Faults
// reach the event log through the queue and its worker.
func (s *Service) FaultSink() faults.Sink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.faultQ == nil {
		return nil
	}
	return s.faultQ
}

// Guard runs fn and reports its error or panic into the fault pipeline.
func (s *Service) Guard(ctx context.Context, op string, fn func(ctx context.Context) error) bool {
	return faults.Guard(ctx, s.FaultSink(), op, fn)
}

// ResetPerformance zeroes the spawn rate and touch latency.
func (s *Service) ResetPerformance(ctx context.Context) error {
	smp := s.Sampler()
	if smp == nil {
		return ErrNotStarted
	}
	smp.Reset(ctx)
	s.logger.Debug(ctx, "performance metrics reset")
	return nil
}

// AnalysisConfig returns the default analysis configuration with the
// configured variance threshold.
func (s *Service) AnalysisConfig() analytics.Config {
	cfg := analytics.DefaultConfig()
	cfg.AlertThresholds.Variance = s.alertVariance
	return cfg
}

// Analyze runs a distribution analysis. A nil cfg uses AnalysisConfig, and
// fields a partial cfg leaves unset are taken from it.
func (s *Service) Analyze(ctx context.Context, data []analytics.DataPoint, timeframe string, cfg *analytics.Config) (analytics.Report, error) {
	a := s.Analyzer()
	if a == nil {
		return analytics.Report{}, ErrNotStarted
	}
	c := s.AnalysisConfig()
	if cfg != nil {
		c = cfg.WithDefaults(c)
	}
	return a.Analyze(ctx, data, timeframe, c)
}

// ReportFault queues f for recording. Faults carrying a report ID are
// recorded once; a retry of an accepted report returns StatusDuplicate.
func (s *Service) ReportFault(ctx context.Context, f model.Fault) (faults.Status, error) {
	s.mu.RLock()
	started, q, d := s.started, s.faultQ, s.deduper
	s.mu.RUnlock()

	if !started {
		return faults.StatusRejected, ErrNotStarted
	}
	if f.Message == "" {
		return faults.StatusRejected, fmt.Errorf("%w: message is required", faults.ErrInvalidFault)
	}

	if f.ReportID != "" && d.SeenAndRecord(ctx, f.ReportID) {
		metrics.RecordFaultDuplicate()
		s.logger.Debug(ctx, "duplicate fault report", logger.String("report_id", f.ReportID))
		return faults.StatusDuplicate, nil
	}

	if !q.Enqueue(ctx, f) {
		if f.ReportID != "" {
			d.Unrecord(ctx, f.ReportID)
		}
		return faults.StatusRejected, nil
	}
	return faults.StatusAccepted, nil
}

// Ingest records one client-submitted event by calling record with the event
// log. Submissions carrying an event ID are recorded once; a retry returns
// StatusDuplicate and a zero event.
func (s *Service) Ingest(ctx context.Context, eventID string, record func(ctx context.Context, log *eventlog.EventLog) model.Event) (model.Event, faults.Status, error) {
	s.mu.RLock()
	started, log, d := s.started, s.events, s.deduper
	s.mu.RUnlock()

	if !started {
		return model.Event{}, faults.StatusRejected, ErrNotStarted
	}
	if eventID != "" && d.SeenAndRecord(ctx, eventKeyPrefix+eventID) {
		s.logger.Debug(ctx, "duplicate event submission", logger.String("event_id", eventID))
		return model.Event{}, faults.StatusDuplicate, nil
	}
	return record(ctx, log), faults.StatusAccepted, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	goroutines := runtime.NumGoroutine()
	metrics.UpdateSystemGoroutineCount(goroutines)

	stats := map[string]any{
		"started":        s.started,
		"maxEvents":      s.maxEvents,
		"faultQueueSize": s.faultQueueSize,
		"dedupeSize":     s.dedupeSize,
		"goroutines":     goroutines,
	}
	if s.events == nil {
		return stats
	}

	stats["events"] = s.events.Len()
	stats["lastSeq"] = s.events.LastSeq()
	stats["performance"] = s.sampler.Snapshot()
	stats["faultQueueLength"] = s.faultQ.Len(ctx)
	stats["dedupeEntries"] = s.deduper.Size()
	return stats
}

// PublishDebug exposes GetStats under name on the expvar endpoint. It is a
// debugging aid and its output is not a stable API.
func (s *Service) PublishDebug(name string) error {
	if expvar.Get(name) != nil {
		return fmt.Errorf("%w: %q", ErrDebugNameTaken, name)
	}
	expvar.Publish(name, expvar.Func(func() any { return s.GetStats() }))
	return nil
}

func hostEnvironment() func() *model.Environment {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	env := model.Environment{Host: host}
	return func() *model.Environment {
		e := env
		return &e
	}
}
