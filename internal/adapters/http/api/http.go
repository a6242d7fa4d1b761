// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"expvar"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/tapdiag/internal/domain/analytics"
	"github.com/okian/tapdiag/internal/domain/eventlog"
	"github.com/okian/tapdiag/internal/domain/faults"
	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/internal/domain/sampler"
	"github.com/okian/tapdiag/pkg/logger"
)

const defaultStreamInterval = time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider
	EventSource
	EventIngester
	PerformanceSource
	FaultReporter
	Analyzer
}

// EventSource exposes the event log. It returns nil until the owner has
// been initialized.
type EventSource interface {
	EventLog() *eventlog.EventLog
}

// PerformanceSource exposes the sampler and its reset.
type PerformanceSource interface {
	Sampler() *sampler.Sampler
	ResetPerformance(ctx context.Context) error
}

// FaultReporter accepts client fault reports.
type FaultReporter interface {
	ReportFault(ctx context.Context, f model.Fault) (faults.Status, error)
}

// Analyzer runs distribution analyses. A nil cfg selects the server default.
type Analyzer interface {
	Analyze(ctx context.Context, data []analytics.DataPoint, timeframe string, cfg *analytics.Config) (analytics.Report, error)
}

// Option configures the Server.
type Option func(*Server)

// WithStreamInterval sets how often the event stream polls for new events.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the diagnostics API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	ingestHandler      *IngestHandler
	streamHandler      *StreamHandler
	performanceHandler *PerformanceHandler
	faultsHandler      *FaultsHandler
	analyzeHandler     *AnalyzeHandler

	streamInterval time.Duration
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{streamInterval: defaultStreamInterval}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.eventsHandler = NewEventsHandler(deps)
	s.ingestHandler = NewIngestHandler(deps, s.logger)
	s.streamHandler = NewStreamHandler(deps, deps, s.streamInterval, s.logger)
	s.performanceHandler = NewPerformanceHandler(deps)
	s.faultsHandler = NewFaultsHandler(deps, s.logger)
	s.analyzeHandler = NewAnalyzeHandler(deps)
	return s
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(_ context.Context, router *mux.Router) {
	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.Handle("/metrics", s.healthHandler.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	debug := router.PathPrefix("/debug").Subrouter()
	debug.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleList, "events")).Methods(http.MethodGet)
	debug.HandleFunc("/events", MetricsMiddleware(s.ingestHandler.HandlePostEvent, "events")).Methods(http.MethodPost)
	debug.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleClear, "events")).Methods(http.MethodDelete)
	debug.HandleFunc("/events/export", MetricsMiddleware(s.eventsHandler.HandleExport, "events_export")).Methods(http.MethodGet)
	debug.HandleFunc("/events/schema", MetricsMiddleware(s.eventsHandler.HandleSchema, "events_schema")).Methods(http.MethodGet)
	// The stream hijacks the connection, so it bypasses the metrics wrapper.
	debug.HandleFunc("/events/stream", s.streamHandler.HandleStream).Methods(http.MethodGet)
	debug.HandleFunc("/performance", MetricsMiddleware(s.performanceHandler.HandleGet, "performance")).Methods(http.MethodGet)
	debug.HandleFunc("/performance/reset", MetricsMiddleware(s.performanceHandler.HandleReset, "performance_reset")).Methods(http.MethodPost)
	debug.Handle("/vars", expvar.Handler()).Methods(http.MethodGet)

	track := router.PathPrefix("/track").Subrouter()
	track.HandleFunc("/spawn", MetricsMiddleware(s.ingestHandler.HandleSpawn, "track_spawn")).Methods(http.MethodPost)
	track.HandleFunc("/tap", MetricsMiddleware(s.ingestHandler.HandleTap, "track_tap")).Methods(http.MethodPost)
	track.HandleFunc("/state", MetricsMiddleware(s.ingestHandler.HandleState, "track_state")).Methods(http.MethodPost)

	router.HandleFunc("/faults", MetricsMiddleware(s.faultsHandler.HandlePostFault, "faults")).Methods(http.MethodPost)
	router.HandleFunc("/analyze", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze")).Methods(http.MethodPost)
}
