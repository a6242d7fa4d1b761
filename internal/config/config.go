// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and environment variables on top.
// - Validation errors wrap ErrInvalidConfig; loading errors wrap ErrLoadConfig.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Deployment environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const maxFramePumpHz = 1000

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Environment is development or production. Development echoes every
	// recorded event to the log.
	Environment string `koanf:"environment"`

	// MaxEvents is the event log capacity.
	MaxEvents int `koanf:"max_events"`

	// FrameWindowMS and SpawnWindowMS are the sampler measurement windows.
	FrameWindowMS int `koanf:"frame_window_ms"`
	SpawnWindowMS int `koanf:"spawn_window_ms"`

	// LowFrameRate and HighSpawnRate are the sampler warning thresholds.
	LowFrameRate  float64 `koanf:"low_frame_rate"`
	HighSpawnRate float64 `koanf:"high_spawn_rate"`

	// FramePumpHz drives the sampler from a ticker when there is no render
	// loop feeding it frames. Zero disables the pump.
	FramePumpHz int `koanf:"frame_pump_hz"`

	// FaultQueueSize bounds the fault queue.
	FaultQueueSize int `koanf:"fault_queue_size"`

	// DedupeSize sets how many fault report IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// AnalysisLatencyMS delays every analysis. Zero disables the delay.
	AnalysisLatencyMS int `koanf:"analysis_latency_ms"`

	// AlertVariance is the default per-category variance alert threshold.
	AlertVariance float64 `koanf:"alert_variance"`

	// StreamIntervalMS is how often the event stream polls for new events
	// and pushes a performance snapshot.
	StreamIntervalMS int `koanf:"stream_interval_ms"`

	// Metrics configures the Prometheus collectors.
	Metrics MetricsConfig `koanf:"metrics"`
}

// MetricsConfig names and tunes the exported metrics. Names are built as
// <namespace>_<subsystem>_<prefix><metric>.
type MetricsConfig struct {
	Enabled   bool              `koanf:"enabled"`
	Namespace string            `koanf:"namespace"`
	Subsystem string            `koanf:"subsystem"`
	Prefix    string            `koanf:"prefix"`
	RefreshMS int               `koanf:"refresh_ms"`
	Buckets   []float64         `koanf:"buckets"` // latency histogram buckets, ms
	Labels    map[string]string `koanf:"labels"`  // constant labels on every metric
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		Environment:       EnvProduction,
		MaxEvents:         1000,
		FrameWindowMS:     1000,
		SpawnWindowMS:     2000,
		LowFrameRate:      30,
		HighSpawnRate:     8,
		FramePumpHz:       0,
		FaultQueueSize:    1024,
		DedupeSize:        10_000,
		AnalysisLatencyMS: 0,
		AlertVariance:     5.0,
		StreamIntervalMS:  1000,
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "tapdiag",
			Subsystem: "diagnostics",
			RefreshMS: 10_000,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Environment != EnvDevelopment && c.Environment != EnvProduction:
		return fmt.Errorf("%w: environment must be %q or %q, got %q", ErrInvalidConfig, EnvDevelopment, EnvProduction, c.Environment)
	case c.MaxEvents <= 0:
		return fmt.Errorf("%w: max_events must be positive", ErrInvalidConfig)
	case c.FrameWindowMS <= 0 || c.SpawnWindowMS <= 0:
		return fmt.Errorf("%w: sampler windows must be positive", ErrInvalidConfig)
	case c.LowFrameRate <= 0 || c.HighSpawnRate <= 0:
		return fmt.Errorf("%w: sampler thresholds must be positive", ErrInvalidConfig)
	case c.FramePumpHz < 0 || c.FramePumpHz > maxFramePumpHz:
		return fmt.Errorf("%w: frame_pump_hz must be within [0,%d]", ErrInvalidConfig, maxFramePumpHz)
	case c.FaultQueueSize <= 0:
		return fmt.Errorf("%w: fault_queue_size must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.AnalysisLatencyMS < 0:
		return fmt.Errorf("%w: analysis_latency_ms must not be negative", ErrInvalidConfig)
	case c.AlertVariance <= 0:
		return fmt.Errorf("%w: alert_variance must be positive", ErrInvalidConfig)
	case c.StreamIntervalMS <= 0:
		return fmt.Errorf("%w: stream_interval_ms must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return c.Metrics.validate()
}

func (m *MetricsConfig) validate() error {
	switch {
	case !metricName.MatchString(m.Namespace):
		return fmt.Errorf("%w: metrics.namespace %q is not a valid metric name", ErrInvalidConfig, m.Namespace)
	case m.Subsystem != "" && !metricName.MatchString(m.Subsystem):
		return fmt.Errorf("%w: metrics.subsystem %q is not a valid metric name", ErrInvalidConfig, m.Subsystem)
	case m.Prefix != "" && !metricName.MatchString(m.Prefix):
		return fmt.Errorf("%w: metrics.prefix %q is not a valid metric name", ErrInvalidConfig, m.Prefix)
	case m.RefreshMS <= 0:
		return fmt.Errorf("%w: metrics.refresh_ms must be positive", ErrInvalidConfig)
	}
	for i := 1; i < len(m.Buckets); i++ {
		if m.Buckets[i] <= m.Buckets[i-1] {
			return fmt.Errorf("%w: metrics.buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	for name := range m.Labels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics.labels key %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	return nil
}

// RefreshInterval returns RefreshMS as a duration.
func (m *MetricsConfig) RefreshInterval() time.Duration { return ms(m.RefreshMS) }

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool { return c.Environment == EnvDevelopment }

// FrameWindow returns FrameWindowMS as a duration.
func (c *Config) FrameWindow() time.Duration { return ms(c.FrameWindowMS) }

// SpawnWindow returns SpawnWindowMS as a duration.
func (c *Config) SpawnWindow() time.Duration { return ms(c.SpawnWindowMS) }

// AnalysisLatency returns AnalysisLatencyMS as a duration.
func (c *Config) AnalysisLatency() time.Duration { return ms(c.AnalysisLatencyMS) }

// StreamInterval returns StreamIntervalMS as a duration.
func (c *Config) StreamInterval() time.Duration { return ms(c.StreamIntervalMS) }

// FramePumpInterval returns the tick interval for FramePumpHz, or zero when
// the pump is disabled.
func (c *Config) FramePumpInterval() time.Duration {
	if c.FramePumpHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FramePumpHz)
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
