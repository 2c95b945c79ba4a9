package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Policy defaults
	DefaultPolicyFilePath = "./policy.json"
	DefaultPolicyWatch    = false
	DefaultWatchDebounce  = 500 * time.Millisecond

	// Detector defaults
	DefaultDetectorTimeout = 1 * time.Second
	DefaultCustomSeverity  = "medium"

	// Pipeline defaults
	DefaultPipelineMode       = "enforce"
	DefaultLowConfidenceFloor = 0.6

	// Approval defaults
	DefaultApprovalBackend    = "memory"
	DefaultApprovalSQLitePath = "data/approvals.db"

	// Evidence defaults
	DefaultEvidenceEnabled             = true
	DefaultEvidenceBackend             = "sqlite"
	DefaultEvidenceSQLitePath          = "data/traces.db"
	DefaultEvidenceSQLiteMaxOpenConns  = 10
	DefaultEvidenceSQLiteMaxIdleConns  = 5
	DefaultEvidenceSQLiteWALMode       = true
	DefaultEvidenceSQLiteBusyTimeout   = 5 * time.Second
	DefaultEvidenceRecorderAsyncBuffer = 1000
	DefaultEvidenceRecorderWriteTO     = 5 * time.Second
	DefaultEvidenceRetentionDays       = 90
	DefaultEvidenceRetentionSchedule   = "0 3 * * *"
	DefaultEvidenceRetentionArchive    = "data/archives/"
	DefaultEvidenceExportJSONPretty    = true
	DefaultEvidenceExportCSVHeader     = true
	DefaultEvidenceExportMaxSize       = 100000
	DefaultEvidencePacketGenerator     = "minos"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "minos"
)

// DefaultGateDurationBuckets are histogram buckets for per-gate durations
// in seconds. Gates are in-process and fast; buckets skew small.
var DefaultGateDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Policy defaults
	if cfg.Policy.FilePath == "" {
		cfg.Policy.FilePath = DefaultPolicyFilePath
	}
	if cfg.Policy.WatchDebounce == 0 {
		cfg.Policy.WatchDebounce = DefaultWatchDebounce
	}

	// Detector defaults
	if cfg.Detectors.Timeout == 0 {
		cfg.Detectors.Timeout = DefaultDetectorTimeout
	}
	if cfg.Detectors.Sensitivity.CustomSeverity == "" {
		cfg.Detectors.Sensitivity.CustomSeverity = DefaultCustomSeverity
	}

	// Pipeline defaults
	if cfg.Pipeline.Mode == "" {
		cfg.Pipeline.Mode = DefaultPipelineMode
	}
	if cfg.Pipeline.LowConfidenceFloor == 0 {
		cfg.Pipeline.LowConfidenceFloor = DefaultLowConfidenceFloor
	}

	// Approval defaults
	if cfg.Approval.Backend == "" {
		cfg.Approval.Backend = DefaultApprovalBackend
	}
	if cfg.Approval.SQLitePath == "" {
		cfg.Approval.SQLitePath = DefaultApprovalSQLitePath
	}

	// Evidence defaults
	if cfg.Evidence.Backend == "" {
		cfg.Evidence.Backend = DefaultEvidenceBackend
		cfg.Evidence.Enabled = DefaultEvidenceEnabled
	}
	if cfg.Evidence.SQLite.Path == "" {
		cfg.Evidence.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if cfg.Evidence.SQLite.MaxOpenConns == 0 {
		cfg.Evidence.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if cfg.Evidence.SQLite.MaxIdleConns == 0 {
		cfg.Evidence.SQLite.MaxIdleConns = DefaultEvidenceSQLiteMaxIdleConns
	}
	if cfg.Evidence.SQLite.BusyTimeout == 0 {
		cfg.Evidence.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
		cfg.Evidence.SQLite.WALMode = DefaultEvidenceSQLiteWALMode
	}
	if cfg.Evidence.Recorder.AsyncBuffer == 0 {
		cfg.Evidence.Recorder.AsyncBuffer = DefaultEvidenceRecorderAsyncBuffer
	}
	if cfg.Evidence.Recorder.WriteTimeout == 0 {
		cfg.Evidence.Recorder.WriteTimeout = DefaultEvidenceRecorderWriteTO
	}
	if cfg.Evidence.Retention.Days == 0 && cfg.Evidence.Retention.PruneSchedule == "" {
		cfg.Evidence.Retention.Days = DefaultEvidenceRetentionDays
	}
	if cfg.Evidence.Retention.PruneSchedule == "" {
		cfg.Evidence.Retention.PruneSchedule = DefaultEvidenceRetentionSchedule
	}
	if cfg.Evidence.Retention.ArchivePath == "" {
		cfg.Evidence.Retention.ArchivePath = DefaultEvidenceRetentionArchive
	}
	if cfg.Evidence.Export.MaxExportSize == 0 {
		cfg.Evidence.Export.MaxExportSize = DefaultEvidenceExportMaxSize
		cfg.Evidence.Export.JSONPretty = DefaultEvidenceExportJSONPretty
		cfg.Evidence.Export.CSVIncludeHeader = DefaultEvidenceExportCSVHeader
	}
	if cfg.Evidence.Export.PacketGenerator == "" {
		cfg.Evidence.Export.PacketGenerator = DefaultEvidencePacketGenerator
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
		cfg.Telemetry.Logging.RedactPII = true
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
		cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.GateDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.GateDurationBuckets = DefaultGateDurationBuckets
	}
}

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
