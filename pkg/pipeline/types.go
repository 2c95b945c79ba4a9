package pipeline

import (
	"strings"
	"time"

	"minos-hq/minos/pkg/policy"
	"minos-hq/minos/pkg/surface"
)

// Mode selects whether a verdict gates real downstream execution.
type Mode string

const (
	// ModeSimulate runs the full pipeline but the verdict never gates a
	// real action; it is recorded with simulated=true.
	ModeSimulate Mode = "simulate"

	// ModeEnforce makes ALLOW unlock downstream execution and DENY or
	// ESCALATE block it.
	ModeEnforce Mode = "enforce"
)

// Actor identifies the requesting principal and its roles.
type Actor struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles,omitempty"`
}

// Request is the immutable input to one pipeline run. It is created at
// ingress and never mutated.
type Request struct {
	// ID is assigned at ingress when empty.
	ID string `json:"id"`

	// Actor is the requesting identity.
	Actor Actor `json:"actor"`

	// Surface is the raw channel descriptor, classified into a trust
	// surface tag at trace creation.
	Surface string `json:"surface"`

	// Action names the operation the agent wants to perform
	// (e.g. "email_send", "sharepoint_read").
	Action string `json:"action"`

	// Content is the free-text payload scanned by detectors.
	Content string `json:"content,omitempty"`

	// Payload carries structured action parameters.
	Payload map[string]interface{} `json:"payload,omitempty"`

	// SessionID groups requests belonging to one agent session.
	SessionID string `json:"session_id,omitempty"`

	// Timestamp is the ingress time.
	Timestamp time.Time `json:"timestamp"`

	// Mode is simulate or enforce.
	Mode Mode `json:"mode"`
}

// Signal is one typed finding emitted by a detector or gate. Signals are
// append-only within a trace.
type Signal struct {
	// Kind is a dotted identifier, category first: "pii.email",
	// "injection.instruction-override", "intent.low-confidence",
	// "permission.denied", "surface.deny-list", "detector.unavailable".
	Kind string `json:"kind"`

	// Severity grades the finding.
	Severity policy.Severity `json:"severity"`

	// Gate is the 1-based number of the gate that recorded the signal.
	Gate int `json:"gate"`

	// Detector names the producing detector, if any.
	Detector string `json:"detector,omitempty"`

	// Confidence is the detector's confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Evidence is the free-form finding payload (match counts, positions,
	// redacted excerpts).
	Evidence map[string]interface{} `json:"evidence,omitempty"`
}

// Category returns the first segment of the signal kind ("pii" for
// "pii.email"). Sensitivity rules match on this category.
func (s Signal) Category() string {
	if i := strings.IndexByte(s.Kind, '.'); i > 0 {
		return s.Kind[:i]
	}
	return s.Kind
}

// GateOutcome is the result class of one gate evaluation.
type GateOutcome string

const (
	// OutcomePass means the gate found nothing blocking.
	OutcomePass GateOutcome = "pass"

	// OutcomeFail means the gate found a hard failure. At gate 1 and the
	// policy-lookup gate a failure halts the pipeline; at the permission
	// gate it only contributes a deny-weighted signal.
	OutcomeFail GateOutcome = "fail"

	// OutcomeEscalateTrigger means the gate flagged the request for human
	// review without failing it.
	OutcomeEscalateTrigger GateOutcome = "escalate-trigger"

	// OutcomeNeutral means the gate could not produce a definite finding
	// (unclassifiable intent, unavailable detector).
	OutcomeNeutral GateOutcome = "neutral"
)

// GateResult is the immutable record of one gate evaluation. A sealed trace
// holds results strictly ordered 1..8, or a contiguous prefix ending at the
// halting gate.
type GateResult struct {
	// Gate is the 1-based gate number.
	Gate int `json:"gate"`

	// Name is the gate name (policy.GateNames order).
	Name string `json:"name"`

	// Outcome classifies the evaluation result.
	Outcome GateOutcome `json:"outcome"`

	// Signals are the findings recorded at this gate.
	Signals []Signal `json:"signals,omitempty"`

	// MatchedRules lists IDs of policy rules matched at this gate.
	MatchedRules []string `json:"matched_rules,omitempty"`

	// Reason summarizes a fail or escalate outcome.
	Reason string `json:"reason,omitempty"`

	// Timestamp is when the gate completed.
	Timestamp time.Time `json:"timestamp"`

	// Duration is the gate evaluation time.
	Duration time.Duration `json:"duration"`
}

// Decision is the final arbitration outcome.
type Decision string

const (
	DecisionAllow    Decision = "ALLOW"
	DecisionEscalate Decision = "ESCALATE"
	DecisionDeny     Decision = "DENY"
)

// Resolution records how an escalated verdict was settled.
type Resolution string

const (
	// ResolutionAuto marks verdicts settled by the resolver without a
	// human in the loop.
	ResolutionAuto Resolution = "auto"

	// ResolutionHumanApproved marks an escalation approved by a human actor.
	ResolutionHumanApproved Resolution = "human-approved"

	// ResolutionHumanDenied marks an escalation denied by a human actor.
	ResolutionHumanDenied Resolution = "human-denied"
)

// Verdict is the arbitrated outcome of gate 6. It is mutable only during the
// ESCALATE-to-resolved transition, and only through the resolver.
type Verdict struct {
	Decision Decision `json:"decision"`

	// RiskScore is the aggregate weighted score that fed arbitration.
	RiskScore int `json:"risk_score"`

	// TriggeredRules lists the IDs of rules that drove the decision.
	TriggeredRules []string `json:"triggered_rules,omitempty"`

	// Resolution is auto, human-approved, or human-denied.
	Resolution Resolution `json:"resolution"`

	// Simulated is true when the trace ran in simulate mode.
	Simulated bool `json:"simulated"`

	// Reason summarizes the decisive factor ("invalid-input",
	// "hard-deny rule R-X", "risk 120 >= threshold 100").
	Reason string `json:"reason,omitempty"`

	// ResolvedAt is the resolver timestamp.
	ResolvedAt time.Time `json:"resolved_at"`
}

// TraceState is the lifecycle state of a trace.
type TraceState string

const (
	// StateReceived is the initial state before gate 1 runs.
	StateReceived TraceState = "received"

	// StateEvaluating covers gates 1..8 in progress.
	StateEvaluating TraceState = "evaluating"

	// StateHalted is terminal: a gate yielded a hard deny before gate 6.
	StateHalted TraceState = "halted"

	// StateEscalated means gate 6 yielded ESCALATE and the trace awaits
	// human resolution before gates 7-8.
	StateEscalated TraceState = "escalated"

	// StateSealed is terminal: verdict resolved and evidence captured.
	StateSealed TraceState = "sealed"
)

// RuleRef is the audit reference to a matched rule, sufficient to verify the
// decision against the referenced policy snapshot.
type RuleRef struct {
	ID          string          `json:"id"`
	Gate        string          `json:"gate"`
	Action      policy.Action   `json:"action"`
	Ontology    policy.Ontology `json:"ontology"`
	Weight      int             `json:"weight"`
	Specificity int             `json:"specificity"`
}

// EvidenceSection is the gate-7 snapshot of everything needed to replay the
// decision: gate results, signals, matched rules, and the policy hash.
// Append-only; written exactly once.
type EvidenceSection struct {
	CapturedAt    time.Time    `json:"captured_at"`
	PolicyHash    string       `json:"policy_hash"`
	PolicyVersion string       `json:"policy_version"`
	RequestDigest string       `json:"request_digest"`
	GateResults   []GateResult `json:"gate_results"`
	Signals       []Signal     `json:"signals,omitempty"`
	MatchedRules  []RuleRef    `json:"matched_rules,omitempty"`
}

// Trace is the aggregate record of one request's passage through the
// pipeline. One trace per request; created at gate 1, sealed once the
// verdict is resolved and evidence captured.
type Trace struct {
	// ID is the trace UUID.
	ID string `json:"id"`

	// Request is the originating request.
	Request Request `json:"request"`

	// Surface is the classified trust surface tag.
	Surface surface.Tag `json:"surface"`

	// Intent is the classified intent category ("" when unclassified).
	Intent string `json:"intent,omitempty"`

	// PolicyHash and PolicyVersion identify the snapshot bound at creation.
	PolicyHash    string `json:"policy_hash"`
	PolicyVersion string `json:"policy_version"`

	// State is the lifecycle state.
	State TraceState `json:"state"`

	// Results are the ordered gate results.
	Results []GateResult `json:"results"`

	// Verdict is present once gate 6 has run.
	Verdict *Verdict `json:"verdict,omitempty"`

	// TicketID references the approval ticket for escalated traces.
	TicketID string `json:"ticket_id,omitempty"`

	// Evidence is the gate-7 capture.
	Evidence *EvidenceSection `json:"evidence,omitempty"`

	// Exportable is set by gate 8.
	Exportable bool `json:"exportable"`

	CreatedAt time.Time `json:"created_at"`
	SealedAt  time.Time `json:"sealed_at,omitempty"`
}

// Signals returns every signal recorded across all gate results, in gate
// order.
func (t *Trace) Signals() []Signal {
	var out []Signal
	for _, gr := range t.Results {
		out = append(out, gr.Signals...)
	}
	return out
}

// Result returns the gate result for the given 1-based gate number.
func (t *Trace) Result(gate int) (GateResult, bool) {
	for _, gr := range t.Results {
		if gr.Gate == gate {
			return gr, true
		}
	}
	return GateResult{}, false
}

// SensitivityProfile folds recorded signals into the maximum detected
// severity per sensitivity category.
func (t *Trace) SensitivityProfile() map[string]policy.Severity {
	profile := make(map[string]policy.Severity)
	for _, sig := range t.Signals() {
		cat := sig.Category()
		switch cat {
		case "pii", "phi", "regulated":
			profile[cat] = policy.MaxSeverity(profile[cat], sig.Severity)
		}
	}
	return profile
}

// Terminal reports whether the trace reached a terminal state.
func (t *Trace) Terminal() bool {
	return t.State == StateHalted || t.State == StateSealed
}
