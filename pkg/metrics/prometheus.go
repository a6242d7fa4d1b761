// Package metrics provides Prometheus metrics for the tapdiag diagnostics core.
package metrics

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Default latency buckets in milliseconds for analysis and HTTP timings.
var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 150, 250, 500, 1000} //nolint:gochecknoglobals // shared bucket layout

// Manager manages all Prometheus metrics for the diagnostics service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Event log
	eventsRecorded *prometheus.CounterVec
	eventsEvicted  prometheus.Counter
	eventsCleared  prometheus.Counter
	eventsCoerced  prometheus.Counter
	eventLogSize   prometheus.Gauge
	eventLogCap    prometheus.Gauge

	// Performance sampler
	frameRate           prometheus.Gauge
	objectSpawnRate     prometheus.Gauge
	touchLatency        prometheus.Gauge
	memoryUsage         prometheus.Gauge
	performanceWarnings *prometheus.CounterVec
	performanceResets   prometheus.Counter

	// Distribution analyzer
	analysisDuration prometheus.Histogram
	analysisAlerts   *prometheus.CounterVec
	analysisFailures prometheus.Counter

	// Fault sink
	faultsReported  prometheus.Counter
	faultsDuplicate prometheus.Counter
	faultsDropped   *prometheus.CounterVec
	faultQueueSize  prometheus.Gauge
	faultQueueCap   prometheus.Gauge
	panicsRecovered prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	streamClients       prometheus.Gauge

	// System
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager atomic.Pointer[Manager] //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// custom registry. Call it at startup before the metrics handler is created;
// values recorded earlier stay on the old registry. A registry passed in
// opts is ignored.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	all := append(slices.Clone(opts), WithPrometheusRegistry(registry))
	m := NewManager(all...)
	customRegistry.Store(registry)
	globalManager.Store(m)
}

func global() *Manager { return globalManager.Load() }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tapdiag",
		subsystem:        "diagnostics",
		histogramBuckets: defaultLatencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.eventsRecorded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("events_recorded_total"),
		Help: "Total number of events recorded into the event log by kind",
	}, []string{"kind"})

	m.eventsEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("events_evicted_total"),
		Help: "Total number of events evicted from the ring buffer",
	})

	m.eventsCleared = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("event_log_clears_total"),
		Help: "Number of times the event log was cleared",
	})

	m.eventsCoerced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("event_payloads_coerced_total"),
		Help: "Events whose payload held values JSON cannot encode",
	})

	m.eventLogSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("event_log_size"),
		Help: "Current number of events held in the ring buffer",
	})

	m.eventLogCap = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("event_log_capacity"),
		Help: "Capacity of the ring buffer",
	})

	m.frameRate = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("frame_rate"),
		Help: "Frames counted in the last closed frame window",
	})

	m.objectSpawnRate = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("object_spawn_rate"),
		Help: "Object spawns per second over the last closed spawn window",
	})

	m.touchLatency = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("touch_latency_milliseconds"),
		Help: "Latency of the most recent tap",
	})

	m.memoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("memory_usage_bytes"),
		Help: "Heap bytes sampled at the last frame window close",
	})

	m.performanceWarnings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("performance_warnings_total"),
		Help: "Performance warnings emitted by the sampler",
	}, []string{"reason"})

	m.performanceResets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("performance_resets_total"),
		Help: "Number of explicit performance metric resets",
	})

	m.analysisDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("analysis_duration_milliseconds"),
		Help:    "Duration of distribution analyses",
		Buckets: m.histogramBuckets,
	})

	m.analysisAlerts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("analysis_alerts_total"),
		Help: "Alerts produced by distribution analyses by severity",
	}, []string{"severity"})

	m.analysisFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("analysis_failures_total"),
		Help: "Analyses rejected by input validation",
	})

	m.faultsReported = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("faults_reported_total"),
		Help: "Runtime faults accepted by the fault sink",
	})

	m.faultsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("faults_duplicate_total"),
		Help: "Fault reports ignored because their report id was already seen",
	})

	m.faultsDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("faults_dropped_total"),
		Help: "Fault reports dropped by the fault queue",
	}, []string{"reason"})

	m.faultQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("fault_queue_size"),
		Help: "Fault reports waiting to be recorded",
	})

	m.faultQueueCap = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("fault_queue_capacity"),
		Help: "Capacity of the fault queue",
	})

	m.panicsRecovered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("panics_recovered_total"),
		Help: "Panics recovered by guarded calls",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_errors_total"),
		Help: "HTTP error responses by endpoint, type and severity",
	}, []string{"endpoint", "method", "error_type", "severity"})

	m.streamClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("stream_clients"),
		Help: "Connected event stream clients",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_goroutines"),
		Help: "Number of goroutines",
	})
}

// Event log functions.

// RecordEventRecorded increments the recorded counter for kind.
func RecordEventRecorded(kind string) {
	if !global().enabled {
		return
	}
	global().eventsRecorded.WithLabelValues(kind).Inc()
}

// RecordEventEvicted increments the eviction counter.
func RecordEventEvicted() {
	if !global().enabled {
		return
	}
	global().eventsEvicted.Inc()
}

// RecordEventLogCleared increments the clear counter.
func RecordEventLogCleared() {
	if !global().enabled {
		return
	}
	global().eventsCleared.Inc()
}

// RecordEventPayloadCoerced counts an event whose payload was rewritten to
// its string form.
func RecordEventPayloadCoerced() {
	if !global().enabled {
		return
	}
	global().eventsCoerced.Inc()
}

// UpdateEventLogSize sets the current ring buffer length.
func UpdateEventLogSize(size int) {
	global().eventLogSize.Set(float64(size))
}

// UpdateEventLogCapacity sets the ring buffer capacity.
func UpdateEventLogCapacity(capacity int) {
	global().eventLogCap.Set(float64(capacity))
}

// Performance sampler functions.

// UpdateFrameRate sets the frame rate gauge.
func UpdateFrameRate(rate float64) {
	global().frameRate.Set(rate)
}

// UpdateObjectSpawnRate sets the spawn rate gauge.
func UpdateObjectSpawnRate(rate float64) {
	global().objectSpawnRate.Set(rate)
}

// UpdateTouchLatency sets the last tap latency gauge.
func UpdateTouchLatency(latencyMs float64) {
	global().touchLatency.Set(latencyMs)
}

// UpdateMemoryUsage sets the sampled heap size.
func UpdateMemoryUsage(bytes uint64) {
	global().memoryUsage.Set(float64(bytes))
}

// RecordPerformanceWarning increments the warning counter for reason.
func RecordPerformanceWarning(reason string) {
	if !global().enabled {
		return
	}
	global().performanceWarnings.WithLabelValues(reason).Inc()
}

// RecordPerformanceReset increments the reset counter.
func RecordPerformanceReset() {
	if !global().enabled {
		return
	}
	global().performanceResets.Inc()
}

// Analyzer functions.

// RecordAnalysisDuration records how long an analysis took.
func RecordAnalysisDuration(durationMs float64) {
	if !global().enabled {
		return
	}
	global().analysisDuration.Observe(durationMs)
}

// RecordAnalysisAlert increments the alert counter for severity.
func RecordAnalysisAlert(severity string) {
	if !global().enabled {
		return
	}
	global().analysisAlerts.WithLabelValues(severity).Inc()
}

// RecordAnalysisFailure increments the validation failure counter.
func RecordAnalysisFailure() {
	if !global().enabled {
		return
	}
	global().analysisFailures.Inc()
}

// Fault sink functions.

// RecordFaultReported increments the accepted fault counter.
func RecordFaultReported() {
	if !global().enabled {
		return
	}
	global().faultsReported.Inc()
}

// RecordFaultDuplicate increments the duplicate fault counter.
func RecordFaultDuplicate() {
	if !global().enabled {
		return
	}
	global().faultsDuplicate.Inc()
}

// RecordFaultDropped increments the dropped fault counter for reason.
func RecordFaultDropped(reason string) {
	if !global().enabled {
		return
	}
	global().faultsDropped.WithLabelValues(reason).Inc()
}

// UpdateFaultQueueSize sets the fault queue backlog.
func UpdateFaultQueueSize(size int) {
	global().faultQueueSize.Set(float64(size))
}

// UpdateFaultQueueCapacity sets the fault queue capacity.
func UpdateFaultQueueCapacity(capacity int) {
	global().faultQueueCap.Set(float64(capacity))
}

// RecordPanicRecovered increments the recovered panic counter.
func RecordPanicRecovered() {
	if !global().enabled {
		return
	}
	global().panicsRecovered.Inc()
}

// HTTP functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !global().enabled {
		return
	}
	global().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if !global().enabled {
		return
	}
	global().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError increments the HTTP error counter.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	if !global().enabled {
		return
	}
	global().httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// UpdateStreamClients adjusts the connected stream client gauge by delta.
func UpdateStreamClients(delta int) {
	global().streamClients.Add(float64(delta))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	global().systemGoroutineCount.Set(float64(count))
}

// RefreshInterval returns how often gauge updaters should poll their sources.
func RefreshInterval() time.Duration {
	return global().refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
