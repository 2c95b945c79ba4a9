// Package recorder turns terminal pipeline traces into stored evidence
// records.
//
// The recorder implements the pipeline's Recorder interface. Seal validates
// that the trace is genuinely terminal (a contiguous gate run, a resolved
// verdict, evidence captured for sealed traces), scrubs raw request content
// out of the stored document, and enqueues the record on a buffered channel.
// A background worker drains the channel into the storage backend, so
// evaluation latency never includes storage latency.
//
// Records are written exactly once per trace; the storage backend enforces
// this with a duplicate check on the trace ID.
package recorder
