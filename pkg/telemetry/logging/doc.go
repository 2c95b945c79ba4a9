// Package logging configures the process-wide structured logger.
//
// Setup parses the logging section of the configuration, builds an slog
// JSON or text handler, optionally wraps it in a RedactingHandler that
// masks PII-looking attribute values, and installs it as slog.Default.
// Components obtain their loggers with
// slog.Default().With("component", "...").
//
// Context helpers (WithTraceID, WithRequestID, WithActorID) thread
// request identity through call chains; ContextFields extracts them as
// log attributes.
package logging
