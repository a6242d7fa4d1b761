// Package analyzecli implements the analyze command: it loads a distribution
// dataset, runs the analysis locally or against a running server, and
// renders the report.
package analyzecli

import (
	"fmt"
	"time"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds the command's settings.
type Config struct {
	DataFile  string        // YAML or JSON dataset
	Sample    bool          // analyze the built-in sample dataset
	Timeframe string        // report label, e.g. 30d
	Variance  float64       // variance alert threshold; zero keeps the default
	URL       string        // base URL of a running server; empty runs locally
	Format    string        // text or json
	Output    string        // file to write the report to; empty is stdout
	Timeout   time.Duration // bound on the whole run
	Verbose   bool          // debug logging
}

// Validate checks that the settings are usable together.
func (c *Config) Validate() error {
	switch {
	case c.DataFile == "" && !c.Sample:
		return fmt.Errorf("%w: one of -data or -sample is required", ErrUsage)
	case c.DataFile != "" && c.Sample:
		return fmt.Errorf("%w: -data and -sample are mutually exclusive", ErrUsage)
	case c.Format != FormatText && c.Format != FormatJSON:
		return fmt.Errorf("%w: unknown format %q", ErrUsage, c.Format)
	case c.Variance < 0:
		return fmt.Errorf("%w: -variance must not be negative", ErrUsage)
	case c.Timeout < 0:
		return fmt.Errorf("%w: -timeout must not be negative", ErrUsage)
	}
	return nil
}
