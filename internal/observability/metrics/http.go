package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

const namespace = "qc"

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec
	verdictTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests shed by rate limiting or backpressure.",
		},
		[]string{"service", "reason"},
	)
	verdictTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inspection",
			Name:      "verdicts_total",
			Help:      "Verdicts served, by defect source and decision.",
		},
		[]string{"service", "source", "decision"},
	)

	registry.MustRegister(requestTotal, requestDuration, requestInFlight, rejectedTotal, verdictTotal)

	return &HTTPServerMetrics{
		service:         service,
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		rejectedTotal:   rejectedTotal,
		verdictTotal:    verdictTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordRejected counts a shed request; reason is "rate_limited" or "overloaded".
func (m *HTTPServerMetrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}

// RecordVerdict counts a served verdict; source is "ai", "final" or "adhoc".
func (m *HTTPServerMetrics) RecordVerdict(source string, decision domain.Decision) {
	m.verdictTotal.WithLabelValues(m.service, source, string(decision)).Inc()
}

// normalizePath collapses ids so label cardinality stays bounded.
func normalizePath(path string) string {
	const prefix = "/v1/inspections/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.Split(strings.TrimPrefix(path, prefix), "/")
	if len(rest) == 0 || rest[0] == "" {
		return path
	}
	rest[0] = "{id}"
	if len(rest) >= 3 && rest[1] == "defects" && rest[2] != "" {
		rest[2] = "{defect_id}"
	}
	return prefix + strings.Join(rest, "/")
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
