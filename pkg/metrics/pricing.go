package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailure  = "failure"
)

// PricingMetrics records bulk price changes and rollbacks.
type PricingMetrics struct {
	operations *prometheus.CounterVec
	records    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_operations_total",
		Help: "Bulk price changes and rollbacks by outcome.",
	}, []string{"operation", "target", "outcome"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_records_changed_total",
		Help: "Menu records rewritten by pricing operations.",
	}, []string{"operation", "target"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_operation_duration_seconds",
		Help:    "Duration of pricing operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(operations, records, duration)
	return &PricingMetrics{
		operations: operations,
		records:    records,
		duration:   duration,
	}
}

// Observe records one finished operation.
func (p *PricingMetrics) Observe(operation, target, outcome string, elapsed time.Duration) {
	if p == nil || p.operations == nil {
		return
	}
	operation = normalizeLabel(operation)
	p.operations.WithLabelValues(operation, normalizeLabel(target), normalizeLabel(outcome)).Inc()
	p.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// AddRecords counts records rewritten by an operation.
func (p *PricingMetrics) AddRecords(operation, target string, n int) {
	if p == nil || p.records == nil || n <= 0 {
		return
	}
	p.records.WithLabelValues(normalizeLabel(operation), normalizeLabel(target)).Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
