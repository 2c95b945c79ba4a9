package pipeline

import (
	"context"
	"fmt"
	"time"

	"minos-hq/minos/pkg/policy"
)

// gateActionApproval is gate 6: arbitrate the matched rules and recorded
// signals into a single verdict. This is the only place a verdict is created
// for a non-halted trace.
//
// Precedence is restrictive-first:
//
//  1. A permission.denied signal from gate 5 is an automatic DENY; a missing
//     role is never escalatable.
//  2. A control-list signal forces ESCALATE regardless of allow rules.
//  3. A risk score at or above the policy threshold forces ESCALATE.
//  4. Matched escalate rules contend with matched allow rules: a soft allow
//     never overrides a hard escalate; otherwise the more specific rule wins,
//     with hard beating soft and ESCALATE beating ALLOW on a full tie.
//  5. Nothing restrictive matched: ALLOW.
//
// Hard denies never reach this gate; they halt at gate 4.
func (ev *evaluation) gateActionApproval(ctx context.Context) GateResult {
	start := time.Now()
	gr := GateResult{Gate: 6, Name: policy.GateActionApproval}
	t := ev.trace

	v := &Verdict{
		RiskScore:  ev.riskScore(),
		Resolution: ResolutionAuto,
		Simulated:  t.Request.Mode == ModeSimulate,
		ResolvedAt: time.Now().UTC(),
	}
	for _, r := range ev.matched {
		v.TriggeredRules = append(v.TriggeredRules, r.ID)
	}

	risk := ev.snap.Risk()
	allow, escalate := ev.contenders()

	switch {
	case ev.permissionDenied() != nil:
		sig := ev.permissionDenied()
		v.Decision = DecisionDeny
		v.Reason = fmt.Sprintf("permission denied for rule %v", sig.Evidence["rule"])

	case ev.controlListed():
		v.Decision = DecisionEscalate
		v.Reason = fmt.Sprintf("action %q on control list for surface %s", t.Request.Action, t.Surface)

	case v.RiskScore >= risk.Threshold:
		v.Decision = DecisionEscalate
		v.Reason = fmt.Sprintf("risk %d >= threshold %d", v.RiskScore, risk.Threshold)

	case escalate != nil && !overridesEscalation(allow, escalate):
		v.Decision = DecisionEscalate
		v.Reason = fmt.Sprintf("escalate rule %s", escalate.ID)

	case allow != nil:
		v.Decision = DecisionAllow
		v.Reason = fmt.Sprintf("allow rule %s", allow.ID)

	default:
		v.Decision = DecisionAllow
		v.Reason = "no restrictive rule matched"
	}

	t.Verdict = v

	switch v.Decision {
	case DecisionDeny:
		gr.Outcome = OutcomeFail
	case DecisionEscalate:
		gr.Outcome = OutcomeEscalateTrigger
	default:
		gr.Outcome = OutcomePass
	}
	gr.Reason = v.Reason
	gr.Timestamp = time.Now().UTC()
	gr.Duration = time.Since(start)
	return gr
}

// riskScore sums matched rule weights plus the policy severity weight of
// every recorded signal.
func (ev *evaluation) riskScore() int {
	risk := ev.snap.Risk()
	score := 0
	for _, r := range ev.matched {
		score += r.Weight
	}
	for _, sig := range ev.trace.Signals() {
		score += risk.SignalWeight(sig.Severity)
	}
	return score
}

// permissionDenied returns the first permission.denied signal, if any.
func (ev *evaluation) permissionDenied() *Signal {
	for _, sig := range ev.trace.Signals() {
		if sig.Kind == "permission.denied" {
			return &sig
		}
	}
	return nil
}

// controlListed reports whether gate 4 recorded a control-list hit.
func (ev *evaluation) controlListed() bool {
	for _, sig := range ev.trace.Signals() {
		if sig.Kind == "surface.control-list" {
			return true
		}
	}
	return false
}

// contenders picks the strongest allow and escalate rules among the matched
// set. Strength is specificity first, then hard over soft; matched rules
// arrive in deterministic snapshot order, so ties resolve to the first rule
// by gate and ID.
func (ev *evaluation) contenders() (allow, escalate *policy.Rule) {
	for i := range ev.matched {
		r := &ev.matched[i]
		switch r.Action {
		case policy.ActionAllow:
			if stronger(r, allow) {
				allow = r
			}
		case policy.ActionEscalate:
			if stronger(r, escalate) {
				escalate = r
			}
		}
	}
	return allow, escalate
}

// stronger reports whether a outranks the current best.
func stronger(a, best *policy.Rule) bool {
	if best == nil {
		return true
	}
	if a.Specificity() != best.Specificity() {
		return a.Specificity() > best.Specificity()
	}
	return a.Ontology == policy.OntologyHard && best.Ontology == policy.OntologySoft
}

// overridesEscalation reports whether the allow contender beats the escalate
// contender. A soft allow never beats a hard escalate; otherwise higher
// specificity wins, and a full tie stays restrictive.
func overridesEscalation(allow, escalate *policy.Rule) bool {
	if allow == nil {
		return false
	}
	if allow.Ontology == policy.OntologySoft && escalate.Ontology == policy.OntologyHard {
		return false
	}
	if allow.Specificity() != escalate.Specificity() {
		return allow.Specificity() > escalate.Specificity()
	}
	if allow.Ontology != escalate.Ontology {
		return allow.Ontology == policy.OntologyHard
	}
	return false
}
