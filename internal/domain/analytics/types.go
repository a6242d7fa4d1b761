// Package analytics computes equity and distribution statistics for a set of
// categories measured against targets.
//
// All metric functions are pure: they read the data points and nothing else,
// and the result does not depend on the order of the points.
package analytics

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the trend of a category's share over the analyzed timeframe.
type Direction string

// Trend directions.
const (
	Increasing Direction = "increasing"
	Decreasing Direction = "decreasing"
	Stable     Direction = "stable"
)

// ParseDirection converts s into a Direction. An empty string is Stable.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Increasing, Decreasing, Stable:
		return d, nil
	case "":
		return Stable, nil
	default:
		return "", fmt.Errorf("%w: unknown trend %q", ErrInvalidInput, s)
	}
}

// Severity grades an alert.
type Severity string

// Alert severities.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// DataPoint is one category's measured share against its target, in
// percentage units. Variance is supplied by the caller as Actual - Target.
type DataPoint struct {
	Category string    `json:"category" yaml:"category"`
	Target   float64   `json:"target" yaml:"target"`
	Actual   float64   `json:"actual" yaml:"actual"`
	Variance float64   `json:"variance" yaml:"variance"`
	Trend    Direction `json:"trend" yaml:"trend"`
}

// Metrics are the five derived statistics, each in [0,100] except
// VarianceThreshold which lies in [3,10].
type Metrics struct {
	EquityIndex       float64 `json:"equityIndex"`
	DistributionScore float64 `json:"distributionScore"`
	VarianceThreshold float64 `json:"varianceThreshold"`
	TargetAlignment   float64 `json:"targetAlignment"`
	DiversityIndex    float64 `json:"diversityIndex"`
}

// Alert flags a deviation that needs attention.
type Alert struct {
	ID             string    `json:"id"`
	Category       string    `json:"category"`
	Message        string    `json:"message"`
	Severity       Severity  `json:"severity"`
	Recommendation string    `json:"recommendation"`
	Timestamp      time.Time `json:"timestamp"`
}

// Trend describes how fast a category is moving and how much to trust it.
type Trend struct {
	Category   string    `json:"category"`
	Direction  Direction `json:"direction"`
	Rate       float64   `json:"rate"`
	Confidence float64   `json:"confidence"`
}

// Thresholds configure alerting.
type Thresholds struct {
	Variance float64 `json:"variance" yaml:"variance"`
	// Trend is carried for compatibility with stored configs; no rule reads it.
	Trend float64 `json:"trend" yaml:"trend"`
}

// Weightings combine the metrics into the composite score.
type Weightings struct {
	Equity       float64 `json:"equity" yaml:"equity"`
	Distribution float64 `json:"distribution" yaml:"distribution"`
	Alignment    float64 `json:"alignment" yaml:"alignment"`
}

// Config tunes an analysis run.
type Config struct {
	AlertThresholds Thresholds `json:"alertThresholds" yaml:"alertThresholds"`
	Weightings      Weightings `json:"weightings" yaml:"weightings"`
}

// DefaultConfig returns the stock alerting thresholds and weightings.
func DefaultConfig() Config {
	return Config{
		AlertThresholds: Thresholds{Variance: 5.0, Trend: 2.0},
		Weightings:      Weightings{Equity: 0.4, Distribution: 0.3, Alignment: 0.3},
	}
}

// WithDefaults returns c with its unset fields taken from base. A zero
// threshold is unset, and so are weightings that are all zero.
func (c Config) WithDefaults(base Config) Config {
	if c.AlertThresholds.Variance == 0 {
		c.AlertThresholds.Variance = base.AlertThresholds.Variance
	}
	if c.AlertThresholds.Trend == 0 {
		c.AlertThresholds.Trend = base.AlertThresholds.Trend
	}
	if c.Weightings == (Weightings{}) {
		c.Weightings = base.Weightings
	}
	return c
}

// Report is the result of one analysis run.
type Report struct {
	Timeframe       string    `json:"timeframe"`
	Metrics         Metrics   `json:"metrics"`
	CompositeScore  float64   `json:"compositeScore"`
	Alerts          []Alert   `json:"alerts"`
	Trends          []Trend   `json:"trends"`
	Recommendations []string  `json:"recommendations"`
	Timestamp       time.Time `json:"timestamp"`
}
