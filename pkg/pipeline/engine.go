package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"minos-hq/minos/pkg/approval"
	"minos-hq/minos/pkg/detect"
	"minos-hq/minos/pkg/policy"
)

// Recorder seals a finished trace into durable evidence storage. Implemented
// by the evidence recorder; nil disables persistence (simulate-only runs).
type Recorder interface {
	Seal(ctx context.Context, t *Trace) error
}

// Observer receives evaluation telemetry. Implemented by the metrics
// package; nil disables observation.
type Observer interface {
	ObserveGate(gate string, outcome GateOutcome, d time.Duration)
	ObserveVerdict(decision Decision, simulated bool)
	ObserveEscalation(delta int)
}

// Config tunes the engine.
type Config struct {
	// LowConfidenceFloor is the intent confidence below which gate 2
	// records a low-confidence signal alongside the classification.
	LowConfidenceFloor float64

	// DetectorTimeout bounds each sensitivity detector invocation.
	DetectorTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		LowConfidenceFloor: 0.6,
		DetectorTimeout:    time.Second,
	}
}

// pendingTrace is an escalated trace parked for human resolution, together
// with the evaluation context needed to finish gates 7-8 afterwards.
type pendingTrace struct {
	trace   *Trace
	snap    *policy.Snapshot
	matched []policy.Rule
}

// Engine runs the gate pipeline. Safe for concurrent use; each Evaluate call
// is an independent trace.
type Engine struct {
	store     *policy.Store
	schema    *detect.SchemaValidator
	intents   *detect.IntentClassifier
	sensors   *detect.Registry
	approvals approval.Store
	recorder  Recorder
	observer  Observer
	config    *Config
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingTrace // keyed by ticket ID
}

// NewEngine creates a pipeline engine. store and approvals are required;
// recorder and observer may be nil.
func NewEngine(store *policy.Store, schema *detect.SchemaValidator, intents *detect.IntentClassifier,
	sensors *detect.Registry, approvals approval.Store, recorder Recorder, observer Observer,
	config *Config, logger *slog.Logger) (*Engine, error) {

	if store == nil {
		return nil, fmt.Errorf("policy store cannot be nil")
	}
	if approvals == nil {
		return nil, fmt.Errorf("approval store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if schema == nil {
		schema = detect.NewSchemaValidator(detect.SchemaConfig{})
	}
	if intents == nil {
		intents = detect.NewIntentClassifier()
	}
	if sensors == nil {
		sensors = detect.NewRegistry(detect.NewSensitivityDetector(detect.SensitivityConfig{}))
	}

	return &Engine{
		store:     store,
		schema:    schema,
		intents:   intents,
		sensors:   sensors,
		approvals: approvals,
		recorder:  recorder,
		observer:  observer,
		config:    config,
		logger:    logger.With("component", "pipeline.engine"),
		pending:   make(map[string]*pendingTrace),
	}, nil
}

// Evaluate runs the gate pipeline over one request and returns its trace.
// The returned trace is sealed, halted, or escalated; an escalated trace
// finishes later through ResolveEscalation. Evaluate only errors on engine
// misuse (no active policy); request defects surface as DENY verdicts, not
// errors.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Trace, error) {
	snap := e.store.Active()
	if snap == nil {
		return nil, fmt.Errorf("no active policy snapshot")
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	if req.Mode == "" {
		req.Mode = ModeEnforce
	}

	t := &Trace{
		ID:            uuid.New().String(),
		Request:       req,
		PolicyHash:    snap.Hash(),
		PolicyVersion: snap.Version(),
		State:         StateReceived,
		CreatedAt:     time.Now().UTC(),
	}

	run := &evaluation{engine: e, trace: t, snap: snap}
	run.execute(ctx)

	e.logger.Info("trace evaluated",
		"trace_id", t.ID,
		"surface", t.Surface,
		"intent", t.Intent,
		"state", t.State,
		"decision", decisionOf(t),
		"policy_hash", t.PolicyHash,
	)
	return t, nil
}

// ResolveEscalation applies a human decision to an escalated trace. This is
// the only write path for an ESCALATE verdict; it succeeds exactly once per
// ticket, then runs gates 7-8 and seals the trace.
func (e *Engine) ResolveEscalation(ctx context.Context, ticketID string, decision approval.Decision, actor, rationale string) (*Trace, error) {
	// Claim the in-flight trace before consuming the ticket's single
	// resolution. The other order would burn the ticket on an engine that
	// cannot seal the trace, stranding it forever.
	e.mu.Lock()
	pend, ok := e.pending[ticketID]
	delete(e.pending, ticketID)
	e.mu.Unlock()
	if !ok {
		ticket, err := e.approvals.Get(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if ticket.Resolved() {
			return nil, &approval.TicketAlreadyResolvedError{ID: ticketID, State: ticket.State}
		}
		return nil, fmt.Errorf("ticket %s is pending but trace %s is not in flight on this engine", ticketID, ticket.TraceID)
	}

	if _, err := e.approvals.Resolve(ctx, ticketID, approval.Resolution{
		Decision:   decision,
		Actor:      actor,
		Rationale:  rationale,
		ResolvedAt: time.Now().UTC(),
	}); err != nil {
		// Restore the claim so a later attempt can still seal the trace.
		e.mu.Lock()
		e.pending[ticketID] = pend
		e.mu.Unlock()
		return nil, err
	}

	t := pend.trace
	now := time.Now().UTC()
	if decision == approval.DecisionApprove {
		t.Verdict.Decision = DecisionAllow
		t.Verdict.Resolution = ResolutionHumanApproved
	} else {
		t.Verdict.Decision = DecisionDeny
		t.Verdict.Resolution = ResolutionHumanDenied
	}
	t.Verdict.ResolvedAt = now
	t.State = StateEvaluating

	run := &evaluation{engine: e, trace: t, snap: pend.snap, matched: pend.matched}
	run.capture(ctx)
	run.finish(ctx)

	if e.observer != nil {
		e.observer.ObserveEscalation(-1)
	}
	e.logger.Info("escalation resolved",
		"trace_id", t.ID,
		"ticket_id", ticketID,
		"decision", t.Verdict.Decision,
		"resolution", t.Verdict.Resolution,
		"actor", actor,
	)
	return t, nil
}

// PendingCount returns the number of escalated traces awaiting resolution.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// evaluation is the per-trace run state.
type evaluation struct {
	engine  *Engine
	trace   *Trace
	snap    *policy.Snapshot
	matched []policy.Rule
	halted  bool
}

// execute drives the state machine from RECEIVED to a terminal or escalated
// state.
func (ev *evaluation) execute(ctx context.Context) {
	ev.trace.State = StateEvaluating

	gates := []func(context.Context) GateResult{
		ev.gateInputValidation,
		ev.gateIntentClassification,
		ev.gateDataClassification,
		ev.gatePolicyLookup,
		ev.gatePermissionCheck,
	}
	for _, gate := range gates {
		ev.record(gate(ctx))
		if ev.halted {
			ev.finish(ctx)
			return
		}
	}

	ev.record(ev.gateActionApproval(ctx))

	if ev.trace.Verdict.Decision == DecisionEscalate {
		ev.escalate(ctx)
		return
	}

	ev.capture(ctx)
	ev.finish(ctx)
}

// record appends a gate result and reports telemetry.
func (ev *evaluation) record(gr GateResult) {
	ev.trace.Results = append(ev.trace.Results, gr)
	if obs := ev.engine.observer; obs != nil {
		obs.ObserveGate(gr.Name, gr.Outcome, gr.Duration)
	}
}

// capture runs gate 7: snapshot everything needed to replay the decision.
func (ev *evaluation) capture(ctx context.Context) {
	start := time.Now()
	t := ev.trace

	refs := make([]RuleRef, 0, len(ev.matched))
	for _, r := range ev.matched {
		refs = append(refs, RuleRef{
			ID:          r.ID,
			Gate:        r.Gate,
			Action:      r.Action,
			Ontology:    r.Ontology,
			Weight:      r.Weight,
			Specificity: r.Specificity(),
		})
	}

	t.Evidence = &EvidenceSection{
		CapturedAt:    time.Now().UTC(),
		PolicyHash:    t.PolicyHash,
		PolicyVersion: t.PolicyVersion,
		RequestDigest: requestDigest(t.Request),
		GateResults:   append([]GateResult(nil), t.Results...),
		Signals:       t.Signals(),
		MatchedRules:  refs,
	}

	ev.record(GateResult{
		Gate:      7,
		Name:      policy.GateEvidenceCapture,
		Outcome:   OutcomePass,
		Timestamp: time.Now().UTC(),
		Duration:  time.Since(start),
	})
	// The capture itself is part of the evidence; refresh the copy so the
	// section lists its own gate result.
	t.Evidence.GateResults = append([]GateResult(nil), t.Results...)
}

// finish runs gate 8 on non-halted traces, seals the trace, and hands it to
// the recorder.
func (ev *evaluation) finish(ctx context.Context) {
	t := ev.trace

	if ev.halted {
		t.State = StateHalted
	} else {
		start := time.Now()
		t.Exportable = true
		ev.record(GateResult{
			Gate:      8,
			Name:      policy.GateAuditExport,
			Outcome:   OutcomePass,
			Timestamp: time.Now().UTC(),
			Duration:  time.Since(start),
		})
		if t.Evidence != nil {
			t.Evidence.GateResults = append([]GateResult(nil), t.Results...)
		}
		t.State = StateSealed
	}
	t.SealedAt = time.Now().UTC()

	if obs := ev.engine.observer; obs != nil && t.Verdict != nil {
		obs.ObserveVerdict(t.Verdict.Decision, t.Verdict.Simulated)
	}

	if rec := ev.engine.recorder; rec != nil {
		if err := rec.Seal(ctx, t); err != nil {
			ev.engine.logger.Error("failed to seal trace", "trace_id", t.ID, "error", err)
		}
	}
}

// escalate parks the trace and opens its approval ticket.
func (ev *evaluation) escalate(ctx context.Context) {
	t := ev.trace
	ticket := &approval.Ticket{
		ID:        uuid.New().String(),
		TraceID:   t.ID,
		Reason:    t.Verdict.Reason,
		RiskScore: t.Verdict.RiskScore,
		Surface:   t.Surface.String(),
		Action:    t.Request.Action,
		Requester: t.Request.Actor.ID,
		State:     approval.StatePending,
		CreatedAt: time.Now().UTC(),
	}
	if err := ev.engine.approvals.Create(ctx, ticket); err != nil {
		// Without a ticket nobody can ever approve; fail restrictive.
		ev.engine.logger.Error("failed to create approval ticket, denying", "trace_id", t.ID, "error", err)
		t.Verdict.Decision = DecisionDeny
		t.Verdict.Reason = "escalation unavailable: " + err.Error()
		ev.capture(ctx)
		ev.finish(ctx)
		return
	}

	t.TicketID = ticket.ID
	t.State = StateEscalated

	ev.engine.mu.Lock()
	ev.engine.pending[ticket.ID] = &pendingTrace{trace: t, snap: ev.snap, matched: ev.matched}
	ev.engine.mu.Unlock()

	if obs := ev.engine.observer; obs != nil {
		obs.ObserveEscalation(1)
		obs.ObserveVerdict(DecisionEscalate, t.Verdict.Simulated)
	}
}

func decisionOf(t *Trace) Decision {
	if t.Verdict == nil {
		return ""
	}
	return t.Verdict.Decision
}

// requestDigest hashes the canonical request encoding. Evidence stores the
// digest rather than the raw payload so exports retain no more sensitive
// content than policy permits.
func requestDigest(req Request) string {
	data, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
