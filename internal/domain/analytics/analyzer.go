package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/tapdiag/pkg/logger"
	"github.com/okian/tapdiag/pkg/metrics"
)

// DefaultTimeframe labels a report when the caller gives none.
const DefaultTimeframe = "30d"

// Analyzer runs distribution analyses. It holds no per-run state and is safe
// for concurrent use.
type Analyzer struct {
	now     func() time.Time
	latency time.Duration
	logger  logger.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Named("analytics")
	}
	return a
}

// Analyze validates data and produces a report. On validation failure no
// report is produced and the error wraps ErrInvalidInput. The only other
// error is ctx being done during the configured simulated latency. Fields
// left unset in cfg fall back to DefaultConfig.
func (a *Analyzer) Analyze(ctx context.Context, data []DataPoint, timeframe string, cfg Config) (Report, error) {
	start := time.Now()

	points, err := Validate(data)
	if err != nil {
		metrics.RecordAnalysisFailure()
		a.logger.Debug(ctx, "analysis rejected", logger.Error(err))
		return Report{}, err
	}

	if a.latency > 0 {
		t := time.NewTimer(a.latency)
		select {
		case <-ctx.Done():
			t.Stop()
			metrics.RecordAnalysisFailure()
			return Report{}, fmt.Errorf("analysis canceled: %w", ctx.Err())
		case <-t.C:
		}
	}

	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	cfg = cfg.WithDefaults(DefaultConfig())
	now := a.now()

	m := Compute(points)
	alerts := GenerateAlerts(points, m, cfg, now)
	report := Report{
		Timeframe:       timeframe,
		Metrics:         m,
		CompositeScore:  CompositeScore(m, cfg.Weightings),
		Alerts:          alerts,
		Trends:          AnalyzeTrends(points),
		Recommendations: GenerateRecommendations(points, m, alerts),
		Timestamp:       now,
	}

	for _, al := range alerts {
		metrics.RecordAnalysisAlert(string(al.Severity))
	}
	metrics.RecordAnalysisDuration(float64(time.Since(start).Milliseconds()))
	a.logger.Debug(ctx, "analysis complete",
		logger.String("timeframe", timeframe),
		logger.Int("points", len(points)),
		logger.Int("alerts", len(alerts)),
		logger.Float64("equityIndex", m.EquityIndex),
	)
	return report, nil
}

// Validate checks data and returns a copy with empty trends normalized to
// Stable. Empty input, blank categories, non-finite or negative shares and
// unknown trends are rejected.
func Validate(data []DataPoint) ([]DataPoint, error) {
	if len(data) == 0 {
		return nil, ErrInvalidInput
	}
	out := make([]DataPoint, len(data))
	for i, d := range data {
		if d.Category == "" {
			return nil, fmt.Errorf("%w: point %d has no category", ErrInvalidInput, i)
		}
		for _, v := range [...]float64{d.Target, d.Actual, d.Variance} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: point %d (%s) has a non-finite value", ErrInvalidInput, i, d.Category)
			}
		}
		if d.Target < 0 || d.Actual < 0 {
			return nil, fmt.Errorf("%w: point %d (%s) has a negative share", ErrInvalidInput, i, d.Category)
		}
		dir, err := ParseDirection(string(d.Trend))
		if err != nil {
			return nil, fmt.Errorf("point %d (%s): %w", i, d.Category, err)
		}
		d.Trend = dir
		out[i] = d
	}
	return out, nil
}
