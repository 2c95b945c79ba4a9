package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"minos-hq/minos/pkg/evidence"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/evidence.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend. It initializes the
// database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "evidence.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return evidence.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return evidence.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return evidence.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists a trace record. A second record for the same trace ID is
// rejected with a DuplicateError.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.TraceRecord) error {
	query := `
		INSERT INTO trace_records (
			id, request_id, session_id,
			actor_id, surface, intent, action,
			state, decision, resolution, risk_score, simulated,
			policy_hash, policy_version,
			ticket_id, exportable,
			created_at, sealed_at, trace
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.RequestID, record.SessionID,
		record.ActorID, record.Surface, record.Intent, record.Action,
		record.State, record.Decision, record.Resolution, record.RiskScore, record.Simulated,
		record.PolicyHash, record.PolicyVersion,
		record.TicketID, record.Exportable,
		record.CreatedAt, record.SealedAt, string(record.Trace),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return &evidence.DuplicateError{ID: record.ID}
		}
		return evidence.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Get returns the record for a trace ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*evidence.TraceRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM trace_records WHERE id = ?", id)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, &evidence.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "get", err)
	}
	return record, nil
}

// Query retrieves trace records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.TraceRecord, error) {
	if err := query.Validate(); err != nil {
		return nil, evidence.NewQueryError(query, err)
	}

	sqlQuery, args := buildSelect(query)
	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*evidence.TraceRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, evidence.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// QueryStream streams matching records for memory-efficient export of large
// result sets. Both channels close when the query completes or errors.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.TraceRecord, <-chan error, error) {
	if err := query.Validate(); err != nil {
		return nil, nil, evidence.NewQueryError(query, err)
	}

	recordsCh := make(chan *evidence.TraceRecord, 100)
	errCh := make(chan error, 1)
	sqlQuery, args := buildSelect(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				errCh <- evidence.NewStorageError("sqlite", "scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, evidence.NewQueryError(query, err)
	}

	whereClause, args := buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM trace_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters and returns the number
// deleted. Used by retention enforcement.
func (s *SQLiteStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, evidence.NewQueryError(query, err)
	}

	whereClause, args := buildWhereClause(query)
	sqlQuery := "DELETE FROM trace_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

const selectColumns = `SELECT
	id, request_id, session_id,
	actor_id, surface, intent, action,
	state, decision, resolution, risk_score, simulated,
	policy_hash, policy_version,
	ticket_id, exportable,
	created_at, sealed_at, trace`

// buildSelect composes the full SELECT with filters, ordering, and pagination.
func buildSelect(query *evidence.Query) (string, []interface{}) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := selectColumns + " FROM trace_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	sortBy := "created_at"
	if query.SortBy != "" {
		sortBy = query.SortBy
	}
	sortOrder := "DESC"
	if query.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	return sqlQuery, args
}

// buildWhereClause builds a SQL WHERE clause from query filters. Returns the
// clause (without the "WHERE" keyword) and the query arguments.
func buildWhereClause(query *evidence.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.StartTime != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *query.StartTime)
	}
	if query.EndTime != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *query.EndTime)
	}

	for _, f := range []struct {
		column string
		value  string
	}{
		{"actor_id", query.ActorID},
		{"session_id", query.SessionID},
		{"surface", query.Surface},
		{"intent", query.Intent},
		{"action", query.Action},
		{"state", query.State},
		{"decision", query.Decision},
		{"resolution", query.Resolution},
		{"policy_hash", query.PolicyHash},
		{"ticket_id", query.TicketID},
	} {
		if f.value != "" {
			conditions = append(conditions, f.column+" = ?")
			args = append(args, f.value)
		}
	}

	if query.MinRisk != nil {
		conditions = append(conditions, "risk_score >= ?")
		args = append(args, *query.MinRisk)
	}
	if query.MaxRisk != nil {
		conditions = append(conditions, "risk_score <= ?")
		args = append(args, *query.MaxRisk)
	}
	if query.Exportable != nil {
		conditions = append(conditions, "exportable = ?")
		args = append(args, *query.Exportable)
	}

	return strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a database row into a TraceRecord.
func scanRecord(row rowScanner) (*evidence.TraceRecord, error) {
	var record evidence.TraceRecord
	var sessionID, intent, ticketID sql.NullString
	var trace string

	err := row.Scan(
		&record.ID, &record.RequestID, &sessionID,
		&record.ActorID, &record.Surface, &intent, &record.Action,
		&record.State, &record.Decision, &record.Resolution, &record.RiskScore, &record.Simulated,
		&record.PolicyHash, &record.PolicyVersion,
		&ticketID, &record.Exportable,
		&record.CreatedAt, &record.SealedAt, &trace,
	)
	if err != nil {
		return nil, err
	}

	record.SessionID = sessionID.String
	record.Intent = intent.String
	record.TicketID = ticketID.String
	record.Trace = []byte(trace)
	return &record, nil
}
