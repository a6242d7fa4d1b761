package analyzecli

import (
	"fmt"
	"io"

	"github.com/okian/tapdiag/pkg/logger"
)

// SetupLogging initializes the logger on w. Reports go to stdout, so logs
// belong on stderr. Verbose enables debug output; otherwise only warnings
// and errors are shown.
func SetupLogging(w io.Writer, verbose bool) error {
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the analyze tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `tapdiag distribution analysis
=============================

Computes equity, distribution, alignment and diversity metrics for a
category dataset and reports alerts, trends and recommendations.

Usage:
  go run ./cmd/analyze [options]

Options:
  -data string
        YAML or JSON dataset: a list of data points, or a mapping with
        data, timeframe and config keys
  -sample
        Analyze the built-in sample dataset
  -timeframe string
        Report label such as 7d, 30d, 90d or 1y (default from the dataset, then 30d)
  -variance float
        Variance alert threshold in percentage points (default 5)
  -url string
        Base URL of a running server; the analysis runs there instead of locally
  -format string
        Output format: text or json (default "text")
  -output string
        Write the report to this file instead of stdout
  -timeout duration
        Bound on the whole run (default 30s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Analyze the sample dataset
  go run ./cmd/analyze -sample

  # Analyze a file against a running server and save JSON
  go run ./cmd/analyze -data dataset.yaml -url http://localhost:9080 -format json -output report.json
`)
}
