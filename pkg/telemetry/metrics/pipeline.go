package metrics

import (
	"time"

	"minos-hq/minos/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks gate pipeline activity.
//
// Metrics:
//   - minos_gate_duration_seconds: per-gate evaluation duration by gate and outcome
//   - minos_gate_outcomes_total: gate outcome counts
//   - minos_verdicts_total: verdict counts by decision and simulated flag
//   - minos_escalations_pending: currently open escalation tickets
type PipelineMetrics struct {
	gateDuration       *prometheus.HistogramVec
	gateOutcomes       *prometheus.CounterVec
	verdictsTotal      *prometheus.CounterVec
	escalationsPending prometheus.Gauge
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PipelineMetrics {
	pm := &PipelineMetrics{
		gateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "gate_duration_seconds",
				Help:      "Duration of individual gate evaluations in seconds",
				Buckets:   cfg.GateDurationBuckets,
			},
			[]string{"gate"},
		),

		gateOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "gate_outcomes_total",
				Help:      "Total gate evaluations by gate and outcome",
			},
			[]string{"gate", "outcome"},
		),

		verdictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "verdicts_total",
				Help:      "Total verdicts by decision and simulated flag",
			},
			[]string{"decision", "simulated"},
		),

		escalationsPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "escalations_pending",
				Help:      "Escalation tickets currently awaiting human resolution",
			},
		),
	}

	registry.MustRegister(
		pm.gateDuration,
		pm.gateOutcomes,
		pm.verdictsTotal,
		pm.escalationsPending,
	)

	return pm
}

// RecordGate records one gate evaluation.
func (pm *PipelineMetrics) RecordGate(gate, outcome string, d time.Duration) {
	pm.gateDuration.WithLabelValues(gate).Observe(d.Seconds())
	pm.gateOutcomes.WithLabelValues(gate, outcome).Inc()
}

// RecordVerdict records one resolved verdict.
func (pm *PipelineMetrics) RecordVerdict(decision string, simulated bool) {
	sim := "false"
	if simulated {
		sim = "true"
	}
	pm.verdictsTotal.WithLabelValues(decision, sim).Inc()
}

// RecordEscalation adjusts the pending escalation gauge.
func (pm *PipelineMetrics) RecordEscalation(delta int) {
	pm.escalationsPending.Add(float64(delta))
}
