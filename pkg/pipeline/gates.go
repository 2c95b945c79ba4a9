package pipeline

import (
	"context"
	"fmt"
	"time"

	"minos-hq/minos/pkg/detect"
	"minos-hq/minos/pkg/policy"
	"minos-hq/minos/pkg/surface"
)

// detectorInput builds the detector view of the trace's request.
func (ev *evaluation) detectorInput() detect.Input {
	req := ev.trace.Request
	return detect.Input{
		Action:  req.Action,
		Content: req.Content,
		Payload: req.Payload,
	}
}

// toSignals converts detector findings into trace signals attributed to the
// given gate.
func toSignals(gate int, findings []detect.Finding) []Signal {
	out := make([]Signal, 0, len(findings))
	for _, f := range findings {
		out = append(out, Signal{
			Kind:       f.Kind,
			Severity:   f.Severity,
			Gate:       gate,
			Detector:   f.Detector,
			Confidence: f.Confidence,
			Evidence:   f.Evidence,
		})
	}
	return out
}

// halt records a hard deny at the current gate. The pipeline stops at the
// yielding gate; the trace seals as HALTED with an automatic DENY verdict.
func (ev *evaluation) halt(reason string) {
	ev.halted = true
	ev.trace.Verdict = &Verdict{
		Decision:   DecisionDeny,
		Resolution: ResolutionAuto,
		Simulated:  ev.trace.Request.Mode == ModeSimulate,
		Reason:     reason,
		ResolvedAt: time.Now().UTC(),
	}
}

// gateInputValidation is gate 1: classify the trust surface and validate
// request structure. Any failure here halts the pipeline with reason
// "invalid-input" before detectors or policy run.
func (ev *evaluation) gateInputValidation(ctx context.Context) GateResult {
	start := time.Now()
	gr := GateResult{Gate: 1, Name: policy.GateInputValidation, Outcome: OutcomePass}

	tag, err := surface.Classify(ev.trace.Request.Surface)
	if err != nil {
		gr.Signals = append(gr.Signals, Signal{
			Kind:       "schema.unknown-surface",
			Severity:   policy.SeverityHigh,
			Gate:       1,
			Confidence: 1.0,
			Evidence:   map[string]interface{}{"surface": ev.trace.Request.Surface},
		})
		gr.Outcome = OutcomeFail
		gr.Reason = "invalid-input"
		ev.halt("invalid-input")
		gr.Timestamp = time.Now().UTC()
		gr.Duration = time.Since(start)
		return gr
	}
	ev.trace.Surface = tag

	findings, err := ev.engine.schema.Analyze(ctx, ev.detectorInput())
	if err != nil {
		gr.Signals = append(gr.Signals, detectorUnavailable(1, ev.engine.schema.Name(), err))
		gr.Outcome = OutcomeNeutral
	}
	gr.Signals = append(gr.Signals, toSignals(1, findings)...)

	if failed, why := detect.Failed(findings); failed {
		gr.Outcome = OutcomeFail
		gr.Reason = why
		ev.halt("invalid-input")
	}

	gr.Timestamp = time.Now().UTC()
	gr.Duration = time.Since(start)
	return gr
}

// gateIntentClassification is gate 2: assign an intent from the policy
// taxonomy. An unclassifiable request records a neutral outcome and proceeds;
// absence of intent simply matches fewer rules downstream.
func (ev *evaluation) gateIntentClassification(ctx context.Context) GateResult {
	start := time.Now()
	gr := GateResult{Gate: 2, Name: policy.GateIntentClassification, Outcome: OutcomePass}

	cls := ev.engine.intents.Classify(ev.detectorInput(), ev.snap.Intents())
	ev.trace.Intent = cls.Intent

	switch {
	case cls.Intent == "":
		gr.Outcome = OutcomeNeutral
		gr.Reason = "unclassified intent"
		gr.Signals = append(gr.Signals, Signal{
			Kind:       "intent.unclassified",
			Severity:   policy.SeverityLow,
			Gate:       2,
			Confidence: 1.0,
		})
	case cls.Confidence < ev.engine.config.LowConfidenceFloor:
		gr.Signals = append(gr.Signals, Signal{
			Kind:       "intent.low-confidence",
			Severity:   policy.SeverityLow,
			Gate:       2,
			Confidence: cls.Confidence,
			Evidence:   map[string]interface{}{"intent": cls.Intent},
		})
	}

	gr.Timestamp = time.Now().UTC()
	gr.Duration = time.Since(start)
	return gr
}

// gateDataClassification is gate 3: run every sensitivity detector over the
// request. Detectors only grade content; they never block. An unavailable
// detector records a neutral signal and the pipeline continues.
func (ev *evaluation) gateDataClassification(ctx context.Context) GateResult {
	start := time.Now()
	gr := GateResult{Gate: 3, Name: policy.GateDataClassification, Outcome: OutcomePass}

	in := ev.detectorInput()
	for _, d := range ev.engine.sensors.Detectors() {
		bounded := detect.NewBounded(d, ev.engine.config.DetectorTimeout)
		findings, err := bounded.Analyze(ctx, in)
		if err != nil {
			gr.Signals = append(gr.Signals, detectorUnavailable(3, d.Name(), err))
			gr.Outcome = OutcomeNeutral
			continue
		}
		gr.Signals = append(gr.Signals, toSignals(3, findings)...)
	}

	gr.Timestamp = time.Now().UTC()
	gr.Duration = time.Since(start)
	return gr
}

// gatePolicyLookup is gate 4: match the request context against the effective
// rule set and the per-surface lists. A deny-list hit or a matched hard deny
// rule halts the pipeline here.
func (ev *evaluation) gatePolicyLookup(ctx context.Context) GateResult {
	start := time.Now()
	gr := GateResult{Gate: 4, Name: policy.GatePolicyLookup, Outcome: OutcomePass}
	t := ev.trace

	mc := policy.MatchContext{
		Surface:     t.Surface,
		Intent:      t.Intent,
		Sensitivity: t.SensitivityProfile(),
		Roles:       t.Request.Actor.Roles,
	}

	for _, r := range ev.snap.Rules() {
		r := r
		if !r.IsEnabled() || !r.Matches(mc) {
			continue
		}
		ev.matched = append(ev.matched, r)
		gr.MatchedRules = append(gr.MatchedRules, r.ID)
	}

	lists := ev.snap.Lists(t.Surface)
	if contains(lists.Deny, t.Request.Action) || contains(lists.Deny, t.Intent) {
		gr.Signals = append(gr.Signals, Signal{
			Kind:       "surface.deny-list",
			Severity:   policy.SeverityCritical,
			Gate:       4,
			Confidence: 1.0,
			Evidence:   map[string]interface{}{"surface": t.Surface.String(), "action": t.Request.Action},
		})
		gr.Outcome = OutcomeFail
		gr.Reason = fmt.Sprintf("action %q on deny list for surface %s", t.Request.Action, t.Surface)
		ev.halt(gr.Reason)
		gr.Timestamp = time.Now().UTC()
		gr.Duration = time.Since(start)
		return gr
	}

	for _, r := range ev.matched {
		if r.Action == policy.ActionDeny && r.Ontology == policy.OntologyHard {
			gr.Outcome = OutcomeFail
			gr.Reason = fmt.Sprintf("hard-deny rule %s", r.ID)
			ev.halt(gr.Reason)
			gr.Timestamp = time.Now().UTC()
			gr.Duration = time.Since(start)
			return gr
		}
	}

	if contains(lists.Control, t.Request.Action) || contains(lists.Control, t.Intent) {
		gr.Signals = append(gr.Signals, Signal{
			Kind:       "surface.control-list",
			Severity:   policy.SeverityMedium,
			Gate:       4,
			Confidence: 1.0,
			Evidence:   map[string]interface{}{"surface": t.Surface.String(), "action": t.Request.Action},
		})
		gr.Outcome = OutcomeEscalateTrigger
		gr.Reason = fmt.Sprintf("action %q on control list for surface %s", t.Request.Action, t.Surface)
	}

	gr.Timestamp = time.Now().UTC()
	gr.Duration = time.Since(start)
	return gr
}

// gatePermissionCheck is gate 5: verify the actor holds the roles the matched
// rules require. A missing role does not halt; it records a permission.denied
// signal that the resolver turns into an automatic DENY.
func (ev *evaluation) gatePermissionCheck(ctx context.Context) GateResult {
	start := time.Now()
	gr := GateResult{Gate: 5, Name: policy.GatePermissionCheck, Outcome: OutcomePass}
	roles := ev.trace.Request.Actor.Roles

	for _, r := range ev.matched {
		if r.PermissionSatisfied(roles) {
			continue
		}
		gr.Signals = append(gr.Signals, Signal{
			Kind:       "permission.denied",
			Severity:   policy.SeverityHigh,
			Gate:       5,
			Confidence: 1.0,
			Evidence: map[string]interface{}{
				"rule":           r.ID,
				"required_roles": r.RequireRoles,
			},
		})
		gr.Outcome = OutcomeFail
		if gr.Reason == "" {
			gr.Reason = fmt.Sprintf("actor lacks roles required by rule %s", r.ID)
		}
	}

	gr.Timestamp = time.Now().UTC()
	gr.Duration = time.Since(start)
	return gr
}

func detectorUnavailable(gate int, name string, err error) Signal {
	return Signal{
		Kind:     "detector.unavailable",
		Severity: policy.SeverityLow,
		Gate:     gate,
		Detector: name,
		Evidence: map[string]interface{}{"error": err.Error()},
	}
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
