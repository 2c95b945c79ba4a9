// Package health aggregates component health checks for the liveness and
// readiness endpoints. Components register a CheckFunc; Readiness runs
// them concurrently with a per-check timeout and reports "degraded" if any
// fail.
package health
