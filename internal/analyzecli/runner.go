package analyzecli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/tapdiag/internal/adapters/http/api"
	"github.com/okian/tapdiag/internal/domain/analytics"
	"github.com/okian/tapdiag/pkg/logger"
)

// File permission constants.
const outputFilePermission = 0o600

// Run executes one analysis and writes the report to cfg.Output, or to
// stdout when no output file is set.
func Run(ctx context.Context, cfg *Config, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.Named("analyze")

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	ds, err := dataset(cfg)
	if err != nil {
		return err
	}
	timeframe := ds.Timeframe
	if cfg.Timeframe != "" {
		timeframe = cfg.Timeframe
	}
	analysis := analytics.DefaultConfig()
	if ds.Config != nil {
		analysis = *ds.Config
	}
	if cfg.Variance > 0 {
		analysis.AlertThresholds.Variance = cfg.Variance
	}

	log.Debug(ctx, "running analysis",
		logger.Int("points", len(ds.Data)),
		logger.String("timeframe", timeframe),
		logger.Float64("variance", analysis.AlertThresholds.Variance),
		logger.String("url", cfg.URL),
	)

	var report analytics.Report
	if cfg.URL != "" {
		report, err = newHTTPClient(cfg.URL, cfg.Timeout).Analyze(ctx, api.AnalyzeRequest{
			Data:      ds.Data,
			Timeframe: timeframe,
			Config:    &analysis,
		})
	} else {
		report, err = analytics.NewAnalyzer().Analyze(ctx, ds.Data, timeframe, analysis)
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := writeReport(stdout, cfg.Output, report, cfg.Format); err != nil {
		return err
	}

	log.Info(ctx, "analysis complete",
		logger.Float64("compositeScore", report.CompositeScore),
		logger.Int("alerts", len(report.Alerts)),
	)
	return nil
}

// writeReport renders report to path, or to stdout when path is empty.
// The file is closed before returning so a failed flush is reported.
func writeReport(stdout io.Writer, path string, report analytics.Report, format string) (err error) {
	if path == "" {
		if err := Render(stdout, report, format); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()
	if err := Render(f, report, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func dataset(cfg *Config) (Dataset, error) {
	if cfg.Sample {
		return Dataset{Data: analytics.SampleDataset()}, nil
	}
	return LoadDataset(cfg.DataFile)
}
