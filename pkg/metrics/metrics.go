package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector manages all metrics for the settlement service.
// A nil *Collector records nothing.
type Collector struct {
	namespace string
	registry  *prometheus.Registry

	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Settlement metrics
	SettlementsSubmitted  *prometheus.CounterVec
	TransitionsTotal      *prometheus.CounterVec
	TransitionDuration    *prometheus.HistogramVec
	ConsistencyGaps       *prometheus.CounterVec
	TransactionLoads      *prometheus.CounterVec

	// Infrastructure metrics
	StorageErrors   *prometheus.CounterVec
	CacheOperations *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec

	StartTime prometheus.Gauge
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector(namespace string) *Collector {
	c := &Collector{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}

	c.initializeMetrics()
	c.registerMetrics()
	c.StartTime.Set(float64(time.Now().Unix()))

	return c
}

func (c *Collector) initializeMetrics() {
	c.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	c.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status_code"},
	)

	c.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	c.SettlementsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "settlements_submitted_total",
			Help:      "Total number of settlement submissions",
		},
		[]string{"result"},
	)

	c.TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "transaction_transitions_total",
			Help:      "Total number of confirm/decline transitions",
		},
		[]string{"action", "result"},
	)

	c.TransitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "transaction_transition_duration_seconds",
			Help:      "Confirm/decline duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"action"},
	)

	c.ConsistencyGaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "consistency_gaps_total",
			Help:      "Listing transitions whose settlement status echo failed",
		},
		[]string{"action"},
	)

	c.TransactionLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "transaction_loads_total",
			Help:      "Total number of transaction view loads",
		},
		[]string{"phase"},
	)

	c.StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "storage_errors_total",
			Help:      "Total number of document store failures",
		},
		[]string{"operation"},
	)

	c.CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "result"},
	)

	c.EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "events_published_total",
			Help:      "Total number of settlement events published",
		},
		[]string{"type", "result"},
	)

	c.StartTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "start_time_seconds",
			Help:      "Service start time in Unix seconds",
		},
	)
}

func (c *Collector) registerMetrics() {
	c.registry.MustRegister(
		c.RequestsTotal,
		c.RequestDuration,
		c.RequestsInFlight,
		c.SettlementsSubmitted,
		c.TransitionsTotal,
		c.TransitionDuration,
		c.ConsistencyGaps,
		c.TransactionLoads,
		c.StorageErrors,
		c.CacheOperations,
		c.EventsPublished,
		c.StartTime,
	)
}

// RecordHTTPRequest records HTTP request metrics
func (c *Collector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	status := strconv.Itoa(statusCode)
	c.RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	c.RequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordHTTPRequestInFlight adjusts the in-flight gauge
func (c *Collector) RecordHTTPRequestInFlight(delta float64) {
	if c == nil {
		return
	}
	c.RequestsInFlight.Add(delta)
}

// RecordSettlementSubmitted counts a submission attempt
func (c *Collector) RecordSettlementSubmitted(result string) {
	if c == nil {
		return
	}
	c.SettlementsSubmitted.WithLabelValues(result).Inc()
}

// RecordTransition records a confirm/decline attempt
func (c *Collector) RecordTransition(action, result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.TransitionsTotal.WithLabelValues(action, result).Inc()
	c.TransitionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordConsistencyGap counts a listing/settlement divergence
func (c *Collector) RecordConsistencyGap(action string) {
	if c == nil {
		return
	}
	c.ConsistencyGaps.WithLabelValues(action).Inc()
}

// RecordTransactionLoad counts a transaction view load by resulting phase
func (c *Collector) RecordTransactionLoad(phase string) {
	if c == nil {
		return
	}
	c.TransactionLoads.WithLabelValues(phase).Inc()
}

// RecordStorageError counts a document store failure
func (c *Collector) RecordStorageError(operation string) {
	if c == nil {
		return
	}
	c.StorageErrors.WithLabelValues(operation).Inc()
}

// RecordCacheOperation records cache operation metrics
func (c *Collector) RecordCacheOperation(operation, result string) {
	if c == nil {
		return
	}
	c.CacheOperations.WithLabelValues(operation, result).Inc()
}

// RecordEventPublished records an event publication attempt
func (c *Collector) RecordEventPublished(eventType, result string) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(eventType, result).Inc()
}

// GetRegistry returns the metrics registry
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// CreateHandler creates an HTTP handler for metrics
func (c *Collector) CreateHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Timer helps measure operation duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed duration
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
