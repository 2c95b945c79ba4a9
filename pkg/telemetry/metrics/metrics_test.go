package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"minos-hq/minos/pkg/config"
	"minos-hq/minos/pkg/pipeline"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestCollector() *Collector {
	cfg := &config.MetricsConfig{Enabled: true}
	return NewCollector(cfg, nil)
}

func TestObserveGate(t *testing.T) {
	c := newTestCollector()

	c.ObserveGate("input-validation", pipeline.OutcomePass, 50*time.Microsecond)
	c.ObserveGate("input-validation", pipeline.OutcomePass, 80*time.Microsecond)
	c.ObserveGate("policy-lookup", pipeline.OutcomeFail, 120*time.Microsecond)

	got := testutil.ToFloat64(c.pipelineMetrics.gateOutcomes.WithLabelValues("input-validation", "pass"))
	if got != 2 {
		t.Errorf("input-validation pass count = %v, want 2", got)
	}
	got = testutil.ToFloat64(c.pipelineMetrics.gateOutcomes.WithLabelValues("policy-lookup", "fail"))
	if got != 1 {
		t.Errorf("policy-lookup fail count = %v, want 1", got)
	}
}

func TestObserveVerdict(t *testing.T) {
	c := newTestCollector()

	c.ObserveVerdict(pipeline.DecisionAllow, false)
	c.ObserveVerdict(pipeline.DecisionDeny, false)
	c.ObserveVerdict(pipeline.DecisionDeny, true)

	if got := testutil.ToFloat64(c.pipelineMetrics.verdictsTotal.WithLabelValues("DENY", "false")); got != 1 {
		t.Errorf("DENY enforce count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.pipelineMetrics.verdictsTotal.WithLabelValues("DENY", "true")); got != 1 {
		t.Errorf("DENY simulate count = %v, want 1", got)
	}
}

func TestObserveEscalationGauge(t *testing.T) {
	c := newTestCollector()

	c.ObserveEscalation(1)
	c.ObserveEscalation(1)
	c.ObserveEscalation(-1)

	if got := testutil.ToFloat64(c.pipelineMetrics.escalationsPending); got != 1 {
		t.Errorf("pending escalations = %v, want 1", got)
	}
}

func TestPolicyReloadGauge(t *testing.T) {
	c := newTestCollector()

	c.RecordPolicyReload("activated", 12)
	c.RecordPolicyReload("rejected", 0)

	if got := testutil.ToFloat64(c.policyMetrics.activeRules); got != 12 {
		t.Errorf("active rules = %v, want 12 (rejected reload must not move the gauge)", got)
	}
	if got := testutil.ToFloat64(c.policyMetrics.reloadsTotal.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected reloads = %v, want 1", got)
	}
}

func TestDisabledCollectorRecordsNothing(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: false}
	c := NewCollector(cfg, nil)

	c.ObserveGate("input-validation", pipeline.OutcomePass, time.Millisecond)
	c.ObserveVerdict(pipeline.DecisionAllow, false)
	c.RecordTraceSealed("sealed")

	if got := testutil.ToFloat64(c.evidenceMetrics.sealedTotal.WithLabelValues("sealed")); got != 0 {
		t.Errorf("disabled collector recorded %v sealed traces", got)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	c := newTestCollector()
	c.ObserveVerdict(pipeline.DecisionAllow, false)
	c.RecordHTTPRequest("POST", "/v1/evaluate", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler(c).ServeHTTP(rec, req)

	body := rec.Body.String()
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(body, "minos_verdicts_total") {
		t.Error("exposition missing minos_verdicts_total")
	}
	if !strings.Contains(body, "minos_http_requests_total") {
		t.Error("exposition missing minos_http_requests_total")
	}
}
