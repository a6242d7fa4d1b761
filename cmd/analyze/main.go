package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/tapdiag/internal/analyzecli"
)

const defaultTimeout = 30 * time.Second

func main() {
	var (
		dataFile  = flag.String("data", "", "YAML or JSON dataset file")
		sample    = flag.Bool("sample", false, "Analyze the built-in sample dataset")
		timeframe = flag.String("timeframe", "", "Report label such as 7d, 30d, 90d or 1y")
		variance  = flag.Float64("variance", 0, "Variance alert threshold (default 5)")
		baseURL   = flag.String("url", "", "Base URL of a running server; empty runs locally")
		format    = flag.String("format", analyzecli.FormatText, "Output format: text or json")
		output    = flag.String("output", "", "Output file for the report (default: stdout)")
		timeout   = flag.Duration("timeout", defaultTimeout, "Bound on the whole run")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		analyzecli.ShowHelp(os.Stdout)
		return
	}

	if err := analyzecli.SetupLogging(os.Stderr, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg := &analyzecli.Config{
		DataFile:  *dataFile,
		Sample:    *sample,
		Timeframe: *timeframe,
		Variance:  *variance,
		URL:       *baseURL,
		Format:    *format,
		Output:    *output,
		Timeout:   *timeout,
		Verbose:   *verbose,
	}

	if err := analyzecli.Run(context.Background(), cfg, os.Stdout); err != nil {
		os.Stderr.WriteString("Analysis failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
