// Package evidence provides durable, exportable audit records for pipeline
// traces. Every trace that reaches a terminal state is recorded exactly once
// as an immutable TraceRecord for compliance review and forensics.
//
// # Architecture
//
// The evidence system consists of three layers:
//
//  1. Recorder - validates sealed traces and records them asynchronously
//  2. Storage backend - persists trace records (SQLite or in-memory)
//  3. Export - renders stored records as JSON, CSV, or signed packets
//
// # Trace Records
//
// Each record captures:
//   - The full sealed trace (gate results, signals, verdict)
//   - The policy snapshot hash and version the trace bound
//   - Indexed fields for querying (actor, surface, intent, decision, risk)
//   - The request digest rather than raw request content
//
// # Recording Flow
//
// Recording is asynchronous so evaluation latency never includes storage
// latency:
//
//	Pipeline seals trace
//	     ↓
//	Recorder validates completeness (contiguous gate run, resolved verdict)
//	     ↓
//	Buffered channel → background writer
//	     ↓
//	Storage backend (SQLite, WAL mode)
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path: "data/evidence.db",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec, err := recorder.New(store, recorder.DefaultConfig(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Close()
//
//	// Wire into the pipeline engine; Seal is non-blocking.
//	engine, err := pipeline.NewEngine(policies, nil, nil, nil, approvals, rec, nil, nil, nil)
//
// # Querying and Export
//
//	records, err := store.Query(ctx, &evidence.Query{
//	    Decision: "DENY",
//	    Limit:    100,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	exporter := export.NewJSONExporter(true) // pretty-print
//	exporter.Export(ctx, records, os.Stdout)
//
// # Retention
//
// Records can be pruned on a schedule:
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 90,
//	    PruneSchedule: "0 3 * * *",
//	})
//	pruner.Start(ctx)
//	defer pruner.Stop()
//
// # Thread Safety
//
// Recorder, storage backends, and exporters are all safe for concurrent use.
package evidence
