package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	processTotal      *prometheus.CounterVec
	processDuration   *prometheus.HistogramVec
	processInFlight   prometheus.Gauge
	imageAnalysis     *prometheus.CounterVec
	reconciledDefects *prometheus.HistogramVec
	queueLag          *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "inspection_process_total",
			Help:      "Total analyzed inspections by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "inspection_process_duration_seconds",
			Help:      "Inspection analysis duration in seconds by status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "inspection_process_in_flight",
			Help:      "Number of inspections being analyzed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	imageAnalysis := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "image_analysis_total",
			Help:      "Per-photo vision results by status (ok or absent).",
		},
		[]string{"service", "status"},
	)
	reconciledDefects := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reconciled_defects",
			Help:      "Defects per inspection after reconciliation, by severity.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "severity"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between analysis request and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, imageAnalysis, reconciledDefects, queueLag)

	return &WorkerMetrics{
		service:           service,
		registry:          registry,
		processTotal:      processTotal,
		processDuration:   processDuration,
		processInFlight:   processInFlight,
		imageAnalysis:     imageAnalysis,
		reconciledDefects: reconciledDefects,
		queueLag:          queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartInspection() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishInspection(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveImageAnalysis(status domain.ImageResultStatus) {
	m.imageAnalysis.WithLabelValues(m.service, string(status)).Inc()
}

func (m *WorkerMetrics) ObserveReconciled(counts domain.DefectCounts) {
	m.reconciledDefects.WithLabelValues(m.service, string(domain.SeverityCritical)).Observe(float64(counts.Critical))
	m.reconciledDefects.WithLabelValues(m.service, string(domain.SeverityMajor)).Observe(float64(counts.Major))
	m.reconciledDefects.WithLabelValues(m.service, string(domain.SeverityMinor)).Observe(float64(counts.Minor))
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}
