// Package stats provides Prometheus metrics collection for the hello service.
package stats

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lifecycle outcomes recorded by RecordLifecycle
const (
	OutcomeStarted   = "started"
	OutcomeExternal  = "external"
	OutcomeAddrInUse = "addr_in_use"
	OutcomeFailed    = "failed"
)

var (
	// Request metrics
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hello_requests_total",
			Help: "Total number of requests received",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hello_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	responsePayloadSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hello_response_payload_bytes",
			Help:    "Response payload size in bytes",
			Buckets: []float64{8, 16, 32, 64, 128, 256, 1024},
		},
		[]string{"method", "path", "status"},
	)

	greetingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hello_greetings_total",
			Help: "Total number of greetings served, by default or named recipient",
		},
		[]string{"kind"},
	)

	// Lifecycle metrics
	lifecycleOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hello_lifecycle_outcomes_total",
			Help: "Outcomes of conditional server startup",
		},
		[]string{"outcome"},
	)

	serverUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hello_server_up",
			Help: "1 while a server owned by this process is serving, 0 otherwise",
		},
	)

	uptimeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hello_uptime_seconds",
			Help: "Time since the metrics recorder was created in seconds",
		},
	)
)

// MetricsRecorder handles recording metrics
type MetricsRecorder struct {
	startTime     time.Time
	uptimeUpdater *time.Ticker
	stopUpdater   chan struct{}
	stopOnce      sync.Once
}

// NewMetricsRecorder creates a new metrics recorder
func NewMetricsRecorder() *MetricsRecorder {
	mr := &MetricsRecorder{
		startTime:     time.Now(),
		uptimeUpdater: time.NewTicker(10 * time.Second),
		stopUpdater:   make(chan struct{}),
	}

	go mr.updateUptime()

	return mr
}

// Stop stops the metrics recorder. It is safe to call more than once.
func (mr *MetricsRecorder) Stop() {
	mr.stopOnce.Do(func() {
		close(mr.stopUpdater)
		mr.uptimeUpdater.Stop()
	})
}

// RecordRequest records a request with its metrics
func (mr *MetricsRecorder) RecordRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	statusStr := strconv.Itoa(status)

	requestsTotal.WithLabelValues(method, path, statusStr).Inc()
	requestDuration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())

	if responseSize > 0 {
		responsePayloadSize.WithLabelValues(method, path, statusStr).Observe(float64(responseSize))
	}
}

// RecordGreeting counts a greeting, split by whether the default name was used
func (mr *MetricsRecorder) RecordGreeting(usedDefault bool) {
	kind := "named"
	if usedDefault {
		kind = "default"
	}
	greetingsTotal.WithLabelValues(kind).Inc()
}

// RecordLifecycle records the outcome of a conditional startup
func (mr *MetricsRecorder) RecordLifecycle(outcome string) {
	lifecycleOutcomes.WithLabelValues(outcome).Inc()
}

// SetServerUp flags whether an owned server is serving
func (mr *MetricsRecorder) SetServerUp(up bool) {
	if up {
		serverUp.Set(1)
		return
	}
	serverUp.Set(0)
}

// LifecycleOutcome returns the counter for one lifecycle outcome
func (mr *MetricsRecorder) LifecycleOutcome(outcome string) prometheus.Counter {
	return lifecycleOutcomes.WithLabelValues(outcome)
}

// ServerUp returns the gauge set by SetServerUp
func (mr *MetricsRecorder) ServerUp() prometheus.Gauge {
	return serverUp
}

// Uptime returns the time since the recorder was created
func (mr *MetricsRecorder) Uptime() time.Duration {
	return time.Since(mr.startTime)
}

func (mr *MetricsRecorder) updateUptime() {
	for {
		select {
		case <-mr.uptimeUpdater.C:
			uptimeSeconds.Set(mr.Uptime().Seconds())
		case <-mr.stopUpdater:
			return
		}
	}
}
