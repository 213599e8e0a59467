package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal     *prometheus.CounterVec
	processDuration  *prometheus.HistogramVec
	processInFlight  prometheus.Gauge
	queueLag         *prometheus.HistogramVec
	dispositionTotal *prometheus.CounterVec
	ledgerPostTotal  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finmon",
			Subsystem: "worker",
			Name:      "invoice_process_total",
			Help:      "Total processed invoice documents by outcome.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finmon",
			Subsystem: "worker",
			Name:      "invoice_process_duration_seconds",
			Help:      "Invoice processing duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finmon",
			Subsystem: "worker",
			Name:      "invoice_process_in_flight",
			Help:      "Number of in-flight invoice processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finmon",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between invoice upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	dispositionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finmon",
			Subsystem: "worker",
			Name:      "invoice_disposition_total",
			Help:      "Final invoice dispositions by status.",
		},
		[]string{"service", "final_status"},
	)
	ledgerPostTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finmon",
			Subsystem: "worker",
			Name:      "ledger_post_total",
			Help:      "Ledger posting attempts for approved invoices by result.",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, dispositionTotal, ledgerPostTotal)

	return &WorkerMetrics{
		registry:         registry,
		processTotal:     processTotal,
		processDuration:  processDuration,
		processInFlight:  processInFlight,
		queueLag:         queueLag,
		dispositionTotal: dispositionTotal,
		ledgerPostTotal:  ledgerPostTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordDisposition(service, finalStatus string) {
	if finalStatus == "" {
		finalStatus = "unknown"
	}
	m.dispositionTotal.WithLabelValues(service, finalStatus).Inc()
}

func (m *WorkerMetrics) RecordLedgerPost(service string, posted bool) {
	result := "posted"
	if !posted {
		result = "failed"
	}
	m.ledgerPostTotal.WithLabelValues(service, result).Inc()
}
