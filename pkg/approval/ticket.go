// Package approval implements the human-in-the-loop escalation workflow.
//
// Every ESCALATE verdict creates exactly one ticket in PENDING state. A
// human actor resolves it to APPROVED or DENIED exactly once; the pipeline
// then finishes the trace. The core never blocks waiting for a resolution
// and enforces no timeout; a ticket may be resolved at any later time.
package approval

import (
	"context"
	"fmt"
	"time"
)

// State is the ticket lifecycle state.
type State string

const (
	// StatePending awaits a human decision.
	StatePending State = "PENDING"

	// StateApproved is terminal.
	StateApproved State = "APPROVED"

	// StateDenied is terminal.
	StateDenied State = "DENIED"
)

// Decision is the human action applied to a pending ticket.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// Resolution records how and by whom a ticket was settled.
type Resolution struct {
	Decision   Decision  `json:"decision"`
	Actor      string    `json:"actor"`
	Rationale  string    `json:"rationale,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Ticket is the 1:1 companion of an escalated trace.
type Ticket struct {
	// ID is the ticket UUID.
	ID string `json:"id"`

	// TraceID references the escalated trace.
	TraceID string `json:"trace_id"`

	// Reason summarizes why the verdict escalated.
	Reason string `json:"reason"`

	// RiskScore is the trace's aggregate risk score, used for display
	// ordering of the pending queue only.
	RiskScore int `json:"risk_score"`

	// Surface and Action describe the governed request for reviewers.
	Surface string `json:"surface"`
	Action  string `json:"action"`

	// Requester is the actor whose request escalated.
	Requester string `json:"requester"`

	// State is PENDING until resolved.
	State State `json:"state"`

	// Resolution is set exactly once, together with the terminal state.
	Resolution *Resolution `json:"resolution,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Resolved reports whether the ticket reached a terminal state.
func (t *Ticket) Resolved() bool {
	return t.State == StateApproved || t.State == StateDenied
}

// Store persists approval tickets. Implementations must enforce the
// exactly-once resolution invariant.
type Store interface {
	// Create persists a new pending ticket.
	Create(ctx context.Context, t *Ticket) error

	// Get returns the ticket by ID, or TicketNotFoundError.
	Get(ctx context.Context, id string) (*Ticket, error)

	// Resolve applies a resolution to a pending ticket and returns the
	// updated ticket. It fails with TicketNotFoundError for unknown IDs
	// and TicketAlreadyResolvedError for settled tickets.
	Resolve(ctx context.Context, id string, res Resolution) (*Ticket, error)

	// Pending returns unresolved tickets ordered by risk score, highest
	// first.
	Pending(ctx context.Context) ([]*Ticket, error)

	// Close releases store resources.
	Close() error
}

// TicketNotFoundError reports a lookup for a ticket that does not exist.
type TicketNotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *TicketNotFoundError) Error() string {
	return fmt.Sprintf("approval ticket %q not found", e.ID)
}

// TicketAlreadyResolvedError reports a second resolution attempt.
type TicketAlreadyResolvedError struct {
	ID    string
	State State
}

// Error implements the error interface.
func (e *TicketAlreadyResolvedError) Error() string {
	return fmt.Sprintf("approval ticket %q already resolved (%s)", e.ID, e.State)
}
