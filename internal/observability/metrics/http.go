package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics holds the api service registry. Domain observations
// cover intent routing, candidate resolution and pipeline latency on top
// of the usual HTTP server signals.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	routerIntentsTotal     *prometheus.CounterVec
	retrievalCandidates    *prometheus.HistogramVec
	retrievalEmptyTotal    *prometheus.CounterVec
	pipelineDuration       *prometheus.HistogramVec
	pipelineRequestsTotal  *prometheus.CounterVec
	unsafeSQLRejectedTotal *prometheus.CounterVec
	llmTokensTotal         *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aeb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aeb",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "aeb",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	routerIntentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aeb",
			Subsystem: "router",
			Name:      "intents_total",
			Help:      "Total routed questions by classified intent.",
		},
		[]string{"service", "intent"},
	)
	retrievalCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aeb",
			Subsystem: "retrieval",
			Name:      "candidates",
			Help:      "Distribution of candidate set sizes before vector search.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service"},
	)
	retrievalEmptyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aeb",
			Subsystem: "retrieval",
			Name:      "empty_candidates_total",
			Help:      "Total hybrid retrievals whose candidate filter matched nothing.",
		},
		[]string{"service"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aeb",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "pipeline"},
	)
	pipelineRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aeb",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total pipeline executions by outcome.",
		},
		[]string{"service", "pipeline", "status"},
	)
	unsafeSQLRejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aeb",
			Subsystem: "sql",
			Name:      "unsafe_rejected_total",
			Help:      "Total generated SQL statements rejected by the read-only guard.",
		},
		[]string{"service"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aeb",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the model provider, by direction.",
		},
		[]string{"service", "operation", "direction"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		routerIntentsTotal,
		retrievalCandidates,
		retrievalEmptyTotal,
		pipelineDuration,
		pipelineRequestsTotal,
		unsafeSQLRejectedTotal,
		llmTokensTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		routerIntentsTotal:     routerIntentsTotal,
		retrievalCandidates:    retrievalCandidates,
		retrievalEmptyTotal:    retrievalEmptyTotal,
		pipelineDuration:       pipelineDuration,
		pipelineRequestsTotal:  pipelineRequestsTotal,
		unsafeSQLRejectedTotal: unsafeSQLRejectedTotal,
		llmTokensTotal:         llmTokensTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordIntent(service, intent string) {
	if intent == "" {
		intent = "unknown"
	}
	m.routerIntentsTotal.WithLabelValues(service, intent).Inc()
}

func (m *HTTPServerMetrics) RecordCandidateSet(service string, size int) {
	m.retrievalCandidates.WithLabelValues(service).Observe(float64(size))
	if size == 0 {
		m.retrievalEmptyTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordPipeline(service, pipeline string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.pipelineRequestsTotal.WithLabelValues(service, pipeline, status).Inc()
	m.pipelineDuration.WithLabelValues(service, pipeline).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordUnsafeSQLRejected(service string) {
	m.unsafeSQLRejectedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordTokenUsage(service, operation string, promptTokens, completionTokens int) {
	if operation == "" {
		operation = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, operation, "in").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, operation, "out").Add(float64(completionTokens))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
