package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "speech_analyzer"

// Metrics holds the Prometheus collectors of the upload UI
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	analysesTotal    *prometheus.CounterVec
	analysisFailures *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	uploadSize       prometheus.Histogram
	clarityScore     prometheus.Histogram
}

// NewMetrics registers the collectors on reg. A nil registry gets a fresh
// one so several servers can coexist in one process.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		analysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "analyses_total",
				Help:      "Completed analyses by developmental level",
			},
			[]string{"level"},
		),

		analysisFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "analysis_failures_total",
				Help:      "Rejected or failed uploads by reason",
			},
			[]string{"reason"},
		),

		analysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "analysis_duration_seconds",
				Help:      "Decode plus analysis time in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),

		uploadSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "upload_size_bytes",
				Help:      "Size of accepted uploads in bytes",
				Buckets:   prometheus.ExponentialBuckets(10_000, 4, 8),
			},
		),

		clarityScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "clarity_score",
				Help:      "Distribution of clarity scores",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
		),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.analysesTotal,
		m.analysisFailures,
		m.analysisDuration,
		m.uploadSize,
		m.clarityScore,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAnalysis records a successful analysis
func (m *Metrics) RecordAnalysis(level string, clarity float64, uploadBytes int, duration time.Duration) {
	m.analysesTotal.WithLabelValues(level).Inc()
	m.clarityScore.Observe(clarity)
	m.uploadSize.Observe(float64(uploadBytes))
	m.analysisDuration.Observe(duration.Seconds())
}

// RecordFailure counts a rejected or failed upload
func (m *Metrics) RecordFailure(reason string) {
	m.analysisFailures.WithLabelValues(reason).Inc()
}
