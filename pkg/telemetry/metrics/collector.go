package metrics

import (
	"time"

	"minos-hq/minos/pkg/config"
	"minos-hq/minos/pkg/pipeline"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns all Prometheus metrics for Minos. It implements
// pipeline.Observer so the engine reports gate, verdict, and escalation
// activity without importing this package.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	pipelineMetrics *PipelineMetrics
	policyMetrics   *PolicyMetrics
	evidenceMetrics *EvidenceMetrics
	httpMetrics     *HTTPMetrics
}

// Collector satisfies the engine's observer contract.
var _ pipeline.Observer = (*Collector)(nil)

// NewCollector creates a metrics collector registered against the given
// Prometheus registry. If registry is nil a fresh one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "minos"
	}
	if len(cfg.GateDurationBuckets) == 0 {
		cfg.GateDurationBuckets = config.DefaultGateDurationBuckets
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		pipelineMetrics: NewPipelineMetrics(cfg, registry),
		policyMetrics:   NewPolicyMetrics(cfg, registry),
		evidenceMetrics: NewEvidenceMetrics(cfg, registry),
		httpMetrics:     NewHTTPMetrics(cfg, registry),
	}
}

// ObserveGate implements pipeline.Observer.
func (c *Collector) ObserveGate(gate string, outcome pipeline.GateOutcome, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.pipelineMetrics.RecordGate(gate, string(outcome), d)
}

// ObserveVerdict implements pipeline.Observer.
func (c *Collector) ObserveVerdict(decision pipeline.Decision, simulated bool) {
	if !c.config.Enabled {
		return
	}
	c.pipelineMetrics.RecordVerdict(string(decision), simulated)
}

// ObserveEscalation implements pipeline.Observer. Delta is +1 when a
// ticket opens and -1 when it resolves.
func (c *Collector) ObserveEscalation(delta int) {
	if !c.config.Enabled {
		return
	}
	c.pipelineMetrics.RecordEscalation(delta)
}

// RecordPolicyReload records a policy activation attempt.
// Status is "activated" or "rejected".
func (c *Collector) RecordPolicyReload(status string, ruleCount int) {
	if !c.config.Enabled {
		return
	}
	c.policyMetrics.RecordReload(status, ruleCount)
}

// RecordTraceSealed records a trace record handed to storage.
func (c *Collector) RecordTraceSealed(state string) {
	if !c.config.Enabled {
		return
	}
	c.evidenceMetrics.RecordSealed(state)
}

// RecordPruned records trace records deleted by the retention pruner.
func (c *Collector) RecordPruned(count int64) {
	if !c.config.Enabled {
		return
	}
	c.evidenceMetrics.RecordPruned(count)
}

// RecordHTTPRequest records a served API request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.httpMetrics.RecordRequest(method, path, status, d)
}

// Registry returns the Prometheus registry used by this collector,
// for mounting the /metrics endpoint:
//
//	http.Handle("/metrics", metrics.Handler(collector))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
