// Package server provides the governance HTTP API.
//
// This package ties the wired components (pipeline engine, policy store,
// approval store, evidence storage, telemetry) into one HTTP surface and
// manages server lifecycle including start, graceful shutdown, and OS
// signal handling (SIGTERM, SIGINT).
//
// # Routes
//
//   - POST /v1/evaluate - run the gate pipeline over one request
//   - GET /v1/traces - query sealed trace records
//   - GET /v1/traces/{id} - fetch one trace record
//   - GET /v1/approvals - list pending approval tickets, highest risk first
//   - POST /v1/approvals/{id}/resolve - apply a human decision to a ticket
//   - GET /v1/evidence/export - export traces as json, csv, or packet
//   - GET /healthz - liveness probe (always 200)
//   - GET /readyz - readiness probe (503 when any component check fails)
//   - GET /metrics - Prometheus exposition (path configurable)
//
// # Basic Usage
//
//	srv, err := server.New(&cfg.Server, server.Dependencies{
//	    Engine:    engine,
//	    Policies:  store,
//	    Approvals: approvals,
//	    Storage:   storage,
//	    Export:    cfg.Evidence.Export,
//	    Health:    checker,
//	    Metrics:   collector,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until the context is cancelled, a shutdown signal arrives,
// or the listener fails. Shutdown stops accepting connections and waits up
// to the configured shutdown timeout for in-flight requests.
//
// # Middleware Chain
//
// Requests pass through recovery, request ID, logging, and metrics
// middleware before routing. The metrics middleware labels series by route
// pattern rather than raw path so trace and ticket IDs do not explode
// label cardinality.
package server
