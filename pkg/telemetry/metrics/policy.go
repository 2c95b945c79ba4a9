package metrics

import (
	"minos-hq/minos/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks policy store activity.
//
// Metrics:
//   - minos_policy_reloads_total: activation attempts by status
//   - minos_policy_active_rules: effective rule count of the active snapshot
type PolicyMetrics struct {
	reloadsTotal *prometheus.CounterVec
	activeRules  prometheus.Gauge
}

// NewPolicyMetrics creates and registers policy metrics.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "policy_reloads_total",
				Help:      "Policy activation attempts by status (activated, rejected)",
			},
			[]string{"status"},
		),

		activeRules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "policy_active_rules",
				Help:      "Effective rule count of the active policy snapshot",
			},
		),
	}

	registry.MustRegister(pm.reloadsTotal, pm.activeRules)

	return pm
}

// RecordReload records a policy activation attempt. A rejected reload keeps
// the prior snapshot, so the rule gauge only moves on activation.
func (pm *PolicyMetrics) RecordReload(status string, ruleCount int) {
	pm.reloadsTotal.WithLabelValues(status).Inc()
	if status == "activated" {
		pm.activeRules.Set(float64(ruleCount))
	}
}
