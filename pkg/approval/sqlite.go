package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const ticketSchema = `
CREATE TABLE IF NOT EXISTS approval_tickets (
	id          TEXT PRIMARY KEY,
	trace_id    TEXT NOT NULL,
	reason      TEXT NOT NULL,
	risk_score  INTEGER NOT NULL,
	surface     TEXT NOT NULL,
	action      TEXT NOT NULL,
	requester   TEXT NOT NULL,
	state       TEXT NOT NULL,
	resolution  TEXT,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tickets_state ON approval_tickets(state);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_trace ON approval_tickets(trace_id);
`

// SQLiteStore persists approval tickets in SQLite, surviving restarts so a
// human can resolve an escalation at any later time.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes) the ticket database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("ticket db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", path, int((5 * time.Second).Milliseconds()))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticket database: %w", err)
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(ticketSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ticket schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, t *Ticket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approval_tickets
			(id, trace_id, reason, risk_score, surface, action, requester, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TraceID, t.Reason, t.RiskScore, t.Surface, t.Action, t.Requester, string(t.State), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ticket %s: %w", t.ID, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, trace_id, reason, risk_score, surface, action, requester, state, resolution, created_at
		FROM approval_tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, &TicketNotFoundError{ID: id}
	}
	return t, err
}

// Resolve implements Store. The conditional UPDATE makes the transition
// atomic: only one resolution attempt can flip the PENDING row.
func (s *SQLiteStore) Resolve(ctx context.Context, id string, res Resolution) (*Ticket, error) {
	state := StateDenied
	if res.Decision == DecisionApprove {
		state = StateApproved
	}
	resJSON, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resolution: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE approval_tickets SET state = ?, resolution = ?
		WHERE id = ? AND state = ?`,
		string(state), string(resJSON), id, string(StatePending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ticket %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either unknown or already settled; Get disambiguates.
		t, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &TicketAlreadyResolvedError{ID: id, State: t.State}
	}

	return s.Get(ctx, id)
}

// Pending implements Store.
func (s *SQLiteStore) Pending(ctx context.Context) ([]*Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trace_id, reason, risk_score, surface, action, requester, state, resolution, created_at
		FROM approval_tickets WHERE state = ?
		ORDER BY risk_score DESC, created_at ASC`, string(StatePending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending tickets: %w", err)
	}
	defer rows.Close()

	var out []*Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (*Ticket, error) {
	var t Ticket
	var state string
	var resolution sql.NullString
	err := row.Scan(&t.ID, &t.TraceID, &t.Reason, &t.RiskScore, &t.Surface, &t.Action,
		&t.Requester, &state, &resolution, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.State = State(state)
	if resolution.Valid && resolution.String != "" {
		var res Resolution
		if err := json.Unmarshal([]byte(resolution.String), &res); err != nil {
			return nil, fmt.Errorf("failed to decode resolution for ticket %s: %w", t.ID, err)
		}
		t.Resolution = &res
	}
	return &t, nil
}
