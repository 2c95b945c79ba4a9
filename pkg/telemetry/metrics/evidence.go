package metrics

import (
	"minos-hq/minos/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EvidenceMetrics tracks trace recording and retention activity.
//
// Metrics:
//   - minos_traces_sealed_total: records handed to storage by terminal state
//   - minos_traces_pruned_total: records deleted by the retention pruner
type EvidenceMetrics struct {
	sealedTotal *prometheus.CounterVec
	prunedTotal prometheus.Counter
}

// NewEvidenceMetrics creates and registers evidence metrics.
func NewEvidenceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvidenceMetrics {
	em := &EvidenceMetrics{
		sealedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "traces_sealed_total",
				Help:      "Trace records handed to storage by terminal state (sealed, halted)",
			},
			[]string{"state"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "traces_pruned_total",
				Help:      "Trace records deleted by the retention pruner",
			},
		),
	}

	registry.MustRegister(em.sealedTotal, em.prunedTotal)

	return em
}

// RecordSealed records a trace record handed to storage.
func (em *EvidenceMetrics) RecordSealed(state string) {
	em.sealedTotal.WithLabelValues(state).Inc()
}

// RecordPruned records retention deletions.
func (em *EvidenceMetrics) RecordPruned(count int64) {
	em.prunedTotal.Add(float64(count))
}
