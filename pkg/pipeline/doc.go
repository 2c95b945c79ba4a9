// Package pipeline implements the eight-gate evaluation engine that governs
// every agent request.
//
// A request enters at gate 1 bound to the active policy snapshot and flows
// through input validation, intent classification, data classification,
// policy lookup, permission checking, verdict resolution, evidence capture,
// and audit-export readiness, in that fixed order. Each gate appends exactly
// one immutable GateResult to the trace; a hard deny halts the pipeline at
// the yielding gate, and an ESCALATE verdict parks the trace until a human
// resolves its approval ticket.
//
// Evaluation is strictly sequential within a trace (later gates consume
// earlier results) and fully concurrent across traces; the only shared state
// is the immutable policy snapshot bound at trace creation.
package pipeline
