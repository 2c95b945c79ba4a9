package config

import "time"

// Config is the root configuration structure for Minos. It contains all
// configuration sections for the API server, the policy store, detectors,
// the gate pipeline, the approval workflow, evidence storage, and telemetry.
type Config struct {
	// Server contains HTTP API server configuration including listen
	// address, timeouts, and graceful shutdown.
	Server ServerConfig `yaml:"server"`

	// Policy contains configuration for the policy store including the
	// policy file location and watch mode.
	Policy PolicyConfig `yaml:"policy"`

	// Detectors contains configuration for the signal detectors that feed
	// gates 1 through 3.
	Detectors DetectorsConfig `yaml:"detectors"`

	// Pipeline contains configuration for the gate pipeline engine.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Approval contains configuration for the escalation ticket store.
	Approval ApprovalConfig `yaml:"approval"`

	// Evidence contains configuration for trace recording, storage,
	// retention, and export.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero or negative value means no timeout.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PolicyConfig contains configuration for the policy store.
type PolicyConfig struct {
	// FilePath is the path to the policy JSON document.
	// Default: "./policy.json"
	FilePath string `yaml:"file_path"`

	// Watch enables automatic reactivation when the policy file changes.
	// A failed reload keeps the prior snapshot active.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces rapid file change events before reloading.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// DetectorsConfig contains configuration for the signal detectors.
type DetectorsConfig struct {
	// Schema contains schema/injection detector configuration (gate 1).
	Schema SchemaDetectorConfig `yaml:"schema"`

	// Sensitivity contains data classification detector configuration (gate 3).
	Sensitivity SensitivityDetectorConfig `yaml:"sensitivity"`

	// Timeout bounds each detector invocation. A detector exceeding it
	// contributes a low-confidence neutral signal instead of blocking the
	// pipeline.
	// Default: 1s
	Timeout time.Duration `yaml:"timeout"`
}

// SchemaDetectorConfig contains schema/injection detector configuration.
type SchemaDetectorConfig struct {
	// RequiredFields are payload keys that must be present and non-empty.
	RequiredFields []string `yaml:"required_fields"`

	// MaxContentLength rejects request content longer than this many bytes.
	// 0 disables the check.
	MaxContentLength int `yaml:"max_content_length"`

	// InjectionPatterns are additional case-insensitive phrases flagged as
	// prompt injection attempts, on top of the built-in set.
	InjectionPatterns []string `yaml:"injection_patterns"`
}

// SensitivityDetectorConfig contains data classification configuration.
type SensitivityDetectorConfig struct {
	// CustomPatterns adds organization-specific detection patterns.
	// Keys are finding kinds (e.g., "regulated.ticker-symbol"), values are
	// regular expression sources.
	CustomPatterns map[string]string `yaml:"custom_patterns"`

	// CustomSeverity grades custom pattern findings.
	// Options: "low", "medium", "high", "critical"
	// Default: "medium"
	CustomSeverity string `yaml:"custom_severity"`
}

// PipelineConfig contains configuration for the gate pipeline engine.
type PipelineConfig struct {
	// Mode is the default evaluation mode for requests that do not specify
	// one. SIMULATE evaluates identically but marks verdicts simulated.
	// Options: "enforce", "simulate"
	// Default: "enforce"
	Mode string `yaml:"mode"`

	// LowConfidenceFloor is the intent classification confidence below which
	// a low-confidence signal is emitted.
	// Default: 0.6
	LowConfidenceFloor float64 `yaml:"low_confidence_floor"`
}

// ApprovalConfig contains configuration for the escalation ticket store.
type ApprovalConfig struct {
	// Backend specifies the ticket store backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the SQLite database path when Backend is "sqlite".
	// Default: "data/approvals.db"
	SQLitePath string `yaml:"sqlite_path"`
}

// EvidenceConfig contains configuration for trace recording and storage.
type EvidenceConfig struct {
	// Enabled controls whether trace recording is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend for trace records.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains trace recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Export contains export configuration.
	Export ExportConfig `yaml:"export"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/traces.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains trace recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RetainContent keeps raw request content in stored traces. When false,
	// content is scrubbed and only the request digest binds the record to it.
	// Default: false
	RetainContent bool `yaml:"retain_content"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain trace records.
	// 0 means keep records forever (no pruning).
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete enables archiving records before deletion.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory to store archived records.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// ExportConfig contains export configuration.
type ExportConfig struct {
	// JSONPretty enables pretty-printing for JSON exports.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader includes a header row in CSV exports.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`

	// MaxExportSize is the maximum number of records per export.
	// Default: 100000
	MaxExportSize int `yaml:"max_export_size"`

	// PacketGenerator labels the producing system in evidence packets.
	// Default: "minos"
	PacketGenerator string `yaml:"packet_generator"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in log attributes.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "minos"
	Namespace string `yaml:"namespace"`

	// GateDurationBuckets defines histogram buckets for gate duration
	// (seconds).
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0]
	GateDurationBuckets []float64 `yaml:"gate_duration_buckets"`
}
