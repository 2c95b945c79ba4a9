package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// TraceRecord is the stored form of one finished pipeline trace. Indexed
// fields are flattened out of the trace for querying; Trace holds the full
// sealed trace document for replay and export.
type TraceRecord struct {
	// ID is the trace UUID.
	ID string `json:"id"`

	// RequestID is the originating request UUID.
	RequestID string `json:"request_id"`

	// SessionID groups records belonging to one agent session.
	SessionID string `json:"session_id,omitempty"`

	// ActorID identifies the requesting principal.
	ActorID string `json:"actor_id"`

	// Surface is the classified trust surface tag ("U-I", "S-O", ...).
	Surface string `json:"surface"`

	// Intent is the classified intent category, if any.
	Intent string `json:"intent,omitempty"`

	// Action names the governed operation.
	Action string `json:"action"`

	// State is the terminal trace state ("halted" or "sealed").
	State string `json:"state"`

	// Decision is the verdict decision (ALLOW, ESCALATE resolved away
	// before sealing, DENY).
	Decision string `json:"decision"`

	// Resolution is auto, human-approved, or human-denied.
	Resolution string `json:"resolution"`

	// RiskScore is the aggregate risk score that fed arbitration.
	RiskScore int `json:"risk_score"`

	// Simulated marks simulate-mode traces.
	Simulated bool `json:"simulated"`

	// PolicyHash and PolicyVersion identify the snapshot the trace bound.
	PolicyHash    string `json:"policy_hash"`
	PolicyVersion string `json:"policy_version"`

	// TicketID references the approval ticket for escalated traces.
	TicketID string `json:"ticket_id,omitempty"`

	// Exportable marks traces that cleared gate 8.
	Exportable bool `json:"exportable"`

	// CreatedAt and SealedAt bound the trace lifetime.
	CreatedAt time.Time `json:"created_at"`
	SealedAt  time.Time `json:"sealed_at"`

	// Trace is the full trace document as sealed.
	Trace json.RawMessage `json:"trace"`
}

// Query defines filter parameters for querying trace records.
type Query struct {
	// Time range over CreatedAt, inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Filters. Empty values match everything.
	ActorID    string `json:"actor_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Surface    string `json:"surface,omitempty"`
	Intent     string `json:"intent,omitempty"`
	Action     string `json:"action,omitempty"`
	State      string `json:"state,omitempty"`
	Decision   string `json:"decision,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	PolicyHash string `json:"policy_hash,omitempty"`
	TicketID   string `json:"ticket_id,omitempty"`

	// Risk score bounds, inclusive.
	MinRisk *int `json:"min_risk,omitempty"`
	MaxRisk *int `json:"max_risk,omitempty"`

	// Exportable restricts to traces that cleared gate 8.
	Exportable *bool `json:"exportable,omitempty"`

	// Pagination.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting: "created_at" (default) or "risk_score"; "asc" or "desc"
	// (default desc).
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Validate checks the query for contradictory or malformed parameters.
func (q *Query) Validate() error {
	if q == nil {
		return fmt.Errorf("query cannot be nil")
	}
	if q.StartTime != nil && q.EndTime != nil && q.EndTime.Before(*q.StartTime) {
		return fmt.Errorf("end time %s before start time %s", q.EndTime, q.StartTime)
	}
	if q.MinRisk != nil && q.MaxRisk != nil && *q.MaxRisk < *q.MinRisk {
		return fmt.Errorf("max risk %d below min risk %d", *q.MaxRisk, *q.MinRisk)
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset cannot be negative")
	}
	switch q.SortBy {
	case "", "created_at", "risk_score":
	default:
		return fmt.Errorf("unknown sort field %q", q.SortBy)
	}
	switch q.SortOrder {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("unknown sort order %q", q.SortOrder)
	}
	return nil
}

// Matches reports whether the record satisfies every filter of the query.
// Pagination and sorting are not applied here.
func (q *Query) Matches(r *TraceRecord) bool {
	if q.StartTime != nil && r.CreatedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.CreatedAt.After(*q.EndTime) {
		return false
	}
	for _, f := range []struct{ want, got string }{
		{q.ActorID, r.ActorID},
		{q.SessionID, r.SessionID},
		{q.Surface, r.Surface},
		{q.Intent, r.Intent},
		{q.Action, r.Action},
		{q.State, r.State},
		{q.Decision, r.Decision},
		{q.Resolution, r.Resolution},
		{q.PolicyHash, r.PolicyHash},
		{q.TicketID, r.TicketID},
	} {
		if f.want != "" && f.want != f.got {
			return false
		}
	}
	if q.MinRisk != nil && r.RiskScore < *q.MinRisk {
		return false
	}
	if q.MaxRisk != nil && r.RiskScore > *q.MaxRisk {
		return false
	}
	if q.Exportable != nil && r.Exportable != *q.Exportable {
		return false
	}
	return true
}

// Storage is the trace record persistence backend. Implementations must be
// safe for concurrent use.
type Storage interface {
	// Store persists one record. Storing a duplicate trace ID is an error;
	// sealed records are never rewritten.
	Store(ctx context.Context, record *TraceRecord) error

	// Get returns the record for a trace ID.
	Get(ctx context.Context, id string) (*TraceRecord, error)

	// Query returns the records matching the filters.
	Query(ctx context.Context, query *Query) ([]*TraceRecord, error)

	// QueryStream streams matching records for large result sets. Both
	// channels close when the query finishes; the error channel carries at
	// most one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *TraceRecord, <-chan error, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many were removed.
	// Used by retention enforcement.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Exporter writes trace records to an output stream in one format.
type Exporter interface {
	Export(ctx context.Context, records []*TraceRecord, w io.Writer) error
}
