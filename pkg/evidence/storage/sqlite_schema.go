package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the evidence database schema.
const Schema = `
-- Trace records table
CREATE TABLE IF NOT EXISTS trace_records (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    session_id TEXT,

    -- Request identity
    actor_id TEXT NOT NULL,
    surface TEXT NOT NULL,
    intent TEXT,
    action TEXT NOT NULL,

    -- Outcome
    state TEXT NOT NULL,
    decision TEXT NOT NULL,
    resolution TEXT NOT NULL,
    risk_score INTEGER NOT NULL,
    simulated BOOLEAN NOT NULL,

    -- Policy binding
    policy_hash TEXT NOT NULL,
    policy_version TEXT NOT NULL,

    -- Escalation
    ticket_id TEXT,

    -- Export readiness
    exportable BOOLEAN NOT NULL,

    -- Timestamps
    created_at TIMESTAMP NOT NULL,
    sealed_at TIMESTAMP NOT NULL,

    -- Full sealed trace document
    trace TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_traces_created_at ON trace_records(created_at);
CREATE INDEX IF NOT EXISTS idx_traces_actor_id ON trace_records(actor_id);
CREATE INDEX IF NOT EXISTS idx_traces_session_id ON trace_records(session_id);
CREATE INDEX IF NOT EXISTS idx_traces_surface ON trace_records(surface);
CREATE INDEX IF NOT EXISTS idx_traces_decision ON trace_records(decision);
CREATE INDEX IF NOT EXISTS idx_traces_policy_hash ON trace_records(policy_hash);
CREATE INDEX IF NOT EXISTS idx_traces_risk_score ON trace_records(risk_score);
CREATE INDEX IF NOT EXISTS idx_traces_ticket_id ON trace_records(ticket_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
