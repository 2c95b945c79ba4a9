// Package telemetry groups the observability subpackages.
//
//   - logging: structured slog setup with PII redaction
//   - metrics: Prometheus collectors, including the pipeline observer
//   - health: liveness and readiness check aggregation
package telemetry
