// Package metrics collects Prometheus metrics for dataset runs and the
// record browser. Batch runs write their registry to a node-exporter
// textfile; the browser serves it on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for datumkit
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	runPhase        *prometheus.GaugeVec
	recordsRead     *prometheus.CounterVec
	recordsWritten  *prometheus.CounterVec
	lastRunRecords  *prometheus.GaugeVec
	lastRunUnixTime *prometheus.GaugeVec

	// HTTP request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datum_runs_total",
				Help: "Total number of tool runs",
			},
			[]string{"tool", "status"},
		),

		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datum_run_duration_seconds",
				Help:    "Tool run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"tool"},
		),

		runPhase: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "datum_run_phase",
				Help: "Current phase of the running tool (0=opened .. 4=reported)",
			},
			[]string{"tool"},
		),

		recordsRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datum_records_read_total",
				Help: "Total number of records read during validation and compute passes",
			},
			[]string{"tool"},
		),

		recordsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datum_records_written_total",
				Help: "Total number of records written to output stores",
			},
			[]string{"tool", "store"},
		),

		lastRunRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "datum_last_run_records",
				Help: "Aligned record count of the last completed run",
			},
			[]string{"tool"},
		),

		lastRunUnixTime: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "datum_last_run_timestamp_seconds",
				Help: "Unix time at which the last run of a tool completed",
			},
			[]string{"tool", "status"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datum_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datum_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetPhase records the phase a tool run has reached
func (m *Metrics) SetPhase(tool string, phase int) {
	m.runPhase.WithLabelValues(tool).Set(float64(phase))
}

// RecordRead counts records consumed by a validation or compute pass
func (m *Metrics) RecordRead(tool string, n int) {
	m.recordsRead.WithLabelValues(tool).Add(float64(n))
}

// RecordWritten counts records written to one output store
func (m *Metrics) RecordWritten(tool, store string, n int) {
	m.recordsWritten.WithLabelValues(tool, store).Add(float64(n))
}

// RecordRun records the outcome of a complete tool run
func (m *Metrics) RecordRun(tool string, success bool, records int, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	m.runsTotal.WithLabelValues(tool, status).Inc()
	m.runDuration.WithLabelValues(tool).Observe(duration.Seconds())
	m.lastRunUnixTime.WithLabelValues(tool, status).SetToCurrentTime()
	if success {
		m.lastRunRecords.WithLabelValues(tool).Set(float64(records))
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format,
// for pickup by the node exporter's textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler serves the registry over HTTP
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
