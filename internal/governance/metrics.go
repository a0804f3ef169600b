package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла оценка (включая поход за политиками)
	EvaluationDuration *prometheus.HistogramVec

	// Traffic: решения ядра по операциям и исходам
	DecisionsTotal *prometheus.CounterVec

	// Errors: классификация отказов (not_found, conflict, invalid_input, storage)
	ErrorsTotal *prometheus.CounterVec

	// Saturation: заполненность буфера аудита (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern: без регистратора метрики живут в локальном registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		EvaluationDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "governance_evaluation_duration_seconds",
			Help:    "Histogram of policy evaluation latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"operation"}),

		DecisionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "governance_decisions_total",
			Help: "Total number of governance decisions by outcome.",
		}, []string{"operation", "outcome"}),

		ErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "governance_errors_total",
			Help: "Total number of errors by kind.",
		}, []string{"kind"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "governance_audit_buffer_utilization",
			Help: "Current number of entries in the audit buffer.",
		}),
	}
}
