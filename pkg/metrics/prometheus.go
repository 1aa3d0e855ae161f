// Package metrics provides Prometheus metrics for the scene calculation service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace       = "scenecalc"
	defaultSubsystem       = "engine"
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Calculation Metrics
	calculations         *prometheus.CounterVec
	calculationLatency   *prometheus.HistogramVec
	availabilityRefusals *prometheus.CounterVec

	// Tag Query Cache Metrics
	tagQueryCache *prometheus.CounterVec

	// Static Data Metrics
	catalogEntries      *prometheus.GaugeVec
	catalogLoadDuration prometheus.Histogram

	// Event Bus Metrics
	signalsEmitted      *prometheus.CounterVec
	signalHandlerPanics *prometheus.CounterVec
	signalSubscribers   prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics state. Init swaps both atomically.
var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	globalRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // registry served on /healthz
)

func init() { //nolint:gochecknoinits // metrics must be usable before main configures them
	Init()
}

// Init replaces the global manager with one registered on a fresh registry.
// Default Go/process collectors are not registered.
func Init(opts ...Option) *Manager {
	reg := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(reg))...)
	globalRegistry.Store(reg)
	globalManager.Store(m)
	return m
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return globalRegistry.Load()
}

// RefreshInterval returns the gauge refresh interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.Load().refreshInterval
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
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
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.calculations = m.counterVec("calculations_total",
		"Total number of calculations by calculator", "calculator")
	m.calculationLatency = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("calculation_latency_milliseconds"),
		Help:        "Calculation latency in milliseconds by calculator",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"calculator"})
	m.availabilityRefusals = m.counterVec("availability_refusals_total",
		"Talent refusals by check", "check")

	m.tagQueryCache = m.counterVec("tag_query_cache_total",
		"Planner tag query cache lookups by tag type and result", "tag_type", "result")

	m.catalogEntries = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("catalog_entries"),
		Help:        "Number of static data entries loaded per table",
		ConstLabels: m.customLabels,
	}, []string{"table"})
	m.catalogLoadDuration = m.histogram("catalog_load_duration_milliseconds",
		"Time spent loading static data in milliseconds")

	m.signalsEmitted = m.counterVec("signals_emitted_total",
		"Events emitted on the session bus by kind", "kind")
	m.signalHandlerPanics = m.counterVec("signal_handler_panics_total",
		"Recovered panics in event handlers by kind", "kind")
	m.signalSubscribers = m.gauge("signal_subscribers",
		"Current number of event bus subscriptions")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by HTTP endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap memory in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Current number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time in milliseconds")
}

// active returns the global manager when metrics are enabled.
func active() (*Manager, bool) {
	m := globalManager.Load()
	return m, m != nil && m.enabled
}

// RecordCalculation counts one calculation and its latency.
func RecordCalculation(calculator string, latency time.Duration) {
	if m, ok := active(); ok {
		m.calculations.WithLabelValues(calculator).Inc()
		m.calculationLatency.WithLabelValues(calculator).Observe(float64(latency.Microseconds()) / 1000)
	}
}

// RecordAvailabilityRefusal counts a refusal produced by the named check.
func RecordAvailabilityRefusal(check string) {
	if m, ok := active(); ok {
		m.availabilityRefusals.WithLabelValues(check).Inc()
	}
}

// RecordTagQueryCacheHit counts a planner query served from cache.
func RecordTagQueryCacheHit(tagType string) {
	if m, ok := active(); ok {
		m.tagQueryCache.WithLabelValues(tagType, "hit").Inc()
	}
}

// RecordTagQueryCacheMiss counts a planner query that scanned the catalog.
func RecordTagQueryCacheMiss(tagType string) {
	if m, ok := active(); ok {
		m.tagQueryCache.WithLabelValues(tagType, "miss").Inc()
	}
}

// UpdateCatalogEntries sets the number of entries loaded for table.
func UpdateCatalogEntries(table string, n int) {
	if m, ok := active(); ok {
		m.catalogEntries.WithLabelValues(table).Set(float64(n))
	}
}

// RecordCatalogLoadDuration records how long a static data load took.
func RecordCatalogLoadDuration(d time.Duration) {
	if m, ok := active(); ok {
		m.catalogLoadDuration.Observe(float64(d.Microseconds()) / 1000)
	}
}

// RecordSignalEmitted counts an emitted event.
func RecordSignalEmitted(kind string) {
	if m, ok := active(); ok {
		m.signalsEmitted.WithLabelValues(kind).Inc()
	}
}

// RecordSignalHandlerPanic counts a recovered handler panic.
func RecordSignalHandlerPanic(kind string) {
	if m, ok := active(); ok {
		m.signalHandlerPanics.WithLabelValues(kind).Inc()
	}
}

// UpdateSignalSubscribers sets the current subscription count.
func UpdateSignalSubscribers(n int) {
	if m, ok := active(); ok {
		m.signalSubscribers.Set(float64(n))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m, ok := active(); ok {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if m, ok := active(); ok {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	if m, ok := active(); ok {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m, ok := active(); ok {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m, ok := active(); ok {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if m, ok := active(); ok {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m, ok := active(); ok {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}
