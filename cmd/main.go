package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/tapdiag/internal/adapters/http/api"
	"github.com/okian/tapdiag/internal/adapters/http/swagger"
	app "github.com/okian/tapdiag/internal/app"
	"github.com/okian/tapdiag/internal/config"
	"github.com/okian/tapdiag/pkg/logger"
	"github.com/okian/tapdiag/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// debugVarName is the expvar key the service stats are published under.
const debugVarName = "tapdiag"

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logging; development gets human-readable text.
	if err := logger.Init(logger.WithJSON(!cfg.IsDevelopment())); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// run starts the service and the HTTP server and blocks until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	metrics.Configure(metricsOptions(&cfg.Metrics)...)

	svc := app.New(app.WithLogger(log.Named("service")), app.WithConfig(cfg))
	if err := svc.Init(ctx); err != nil {
		return err
	}
	defer svc.Shutdown()

	if err := svc.PublishDebug(debugVarName); err != nil {
		log.Warn(ctx, "debug stats not published", logger.Error(err))
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// metricsOptions maps the metrics config section onto manager options.
func metricsOptions(mc *config.MetricsConfig) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(mc.Enabled),
		metrics.WithNamespace(mc.Namespace),
		metrics.WithSubsystem(mc.Subsystem),
		metrics.WithMetricPrefix(mc.Prefix),
		metrics.WithRefreshInterval(mc.RefreshInterval()),
		metrics.WithHistogramBuckets(mc.Buckets),
		metrics.WithCustomLabels(mc.Labels),
	}
}

// newRouter registers the docs and API routes.
func newRouter(ctx context.Context, svc *app.Service, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()
	swagger.Register(ctx, router)
	api.NewServer(svc, api.WithStreamInterval(cfg.StreamInterval())).Register(ctx, router)
	return router
}

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics pushes the service stats into the gauges that are not
// updated on the hot path.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if n, ok := stats["events"].(int); ok {
		metrics.UpdateEventLogSize(n)
	}
	if n, ok := stats["faultQueueLength"].(int); ok {
		metrics.UpdateFaultQueueSize(n)
	}
}
