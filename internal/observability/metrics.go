package observability

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for PageLens
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestSize      *prometheus.HistogramVec
	httpResponseSize     *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Document normalization metrics
	documentsTotal     *prometheus.CounterVec
	documentPages      prometheus.Histogram
	conversionDuration prometheus.Histogram

	// OCR run metrics
	ocrRunsTotal   *prometheus.CounterVec
	ocrRunDuration *prometheus.HistogramVec
	ocrRunsActive  prometheus.Gauge

	// Benchmark metrics
	benchmarkSessionsTotal *prometheus.CounterVec
	benchmarkProviders     prometheus.Histogram

	// System metrics
	systemUptime prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics creates and registers all Prometheus metrics. Registration
// happens once; subsequent calls return the same instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics()
	})
	return metrics
}

func newMetrics() *Metrics {
	return &Metrics{
		// HTTP metrics
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagelens_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagelens_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagelens_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		httpResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagelens_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagelens_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		// Document normalization metrics
		documentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagelens_documents_total",
				Help: "Total number of documents normalized to page images",
			},
			[]string{"media_type", "status"},
		),
		documentPages: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagelens_document_pages",
				Help:    "Page count per normalized document",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
		conversionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagelens_document_conversion_duration_seconds",
				Help:    "Document to page-image conversion latency in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		// OCR run metrics
		ocrRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagelens_ocr_runs_total",
				Help: "Total number of OCR runs",
			},
			[]string{"provider", "status"},
		),
		ocrRunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagelens_ocr_run_duration_seconds",
				Help:    "OCR run latency in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		ocrRunsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagelens_ocr_runs_active",
				Help: "Current number of in-flight OCR runs",
			},
		),

		// Benchmark metrics
		benchmarkSessionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagelens_benchmark_sessions_total",
				Help: "Total number of benchmark sessions",
			},
			[]string{"status"},
		),
		benchmarkProviders: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagelens_benchmark_providers",
				Help:    "Provider count per benchmark session",
				Buckets: []float64{1, 2, 3, 4},
			},
		),

		// System metrics
		systemUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagelens_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),
	}
}

// MetricsMiddleware returns a Fiber middleware that collects HTTP metrics
func (m *Metrics) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		requestSize := len(c.Body())
		path := normalizePath(c.Path())
		method := c.Method()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := statusClass(c.Response().StatusCode())
		responseSize := len(c.Response().Body())

		m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		m.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
		m.httpResponseSize.WithLabelValues(method, path, status).Observe(float64(responseSize))

		return err
	}
}

// RecordDocument records a document normalization attempt
func (m *Metrics) RecordDocument(mediaType string, pages int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.documentsTotal.WithLabelValues(mediaType, status).Inc()
	if err == nil {
		m.documentPages.Observe(float64(pages))
		m.conversionDuration.Observe(duration.Seconds())
	}
}

// RecordOCRRun records one provider run
func (m *Metrics) RecordOCRRun(provider string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ocrRunsTotal.WithLabelValues(provider, status).Inc()
	m.ocrRunDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// OCRRunStarted marks an OCR run in flight; the returned func marks it done
func (m *Metrics) OCRRunStarted() func() {
	m.ocrRunsActive.Inc()
	return m.ocrRunsActive.Dec
}

// RecordBenchmarkSession records a completed benchmark session
func (m *Metrics) RecordBenchmarkSession(providers int, aborted bool) {
	status := "completed"
	if aborted {
		status = "aborted"
	}
	m.benchmarkSessionsTotal.WithLabelValues(status).Inc()
	m.benchmarkProviders.Observe(float64(providers))
}

// UpdateUptime updates the system uptime metric
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.systemUptime.Set(time.Since(startTime).Seconds())
}

// Handler returns a Fiber handler that exposes Prometheus metrics
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// normalizePath groups paths for metrics labels to prevent cardinality
// explosion from ids embedded in URLs
func normalizePath(path string) string {
	if len(path) > 50 {
		return "long_path"
	}
	return path
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx)
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
