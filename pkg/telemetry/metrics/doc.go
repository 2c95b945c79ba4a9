// Package metrics collects Prometheus metrics for the gate pipeline,
// policy store, evidence subsystem, and API server.
//
// The Collector implements pipeline.Observer, so the engine reports gate
// durations, verdicts, and escalation counts without a dependency on this
// package. All metrics live in one registry; mount it with Handler:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	engine, err := pipeline.NewEngine(store, schema, intents, sensors,
//		approvals, recorder, collector, nil, nil)
//	...
//	mux.Handle(cfg.Telemetry.Metrics.Path, metrics.Handler(collector))
package metrics
