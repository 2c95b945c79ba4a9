// Package storage provides persistence backends for trace evidence records.
//
// Two backends implement the evidence.Storage interface:
//
//   - SQLiteStorage: the production backend. WAL mode, indexed columns for
//     the common query axes (actor, surface, decision, policy hash, risk),
//     and the full sealed trace stored as a JSON document per row.
//   - MemoryStorage: map-backed, for tests and simulate-only runs.
//
// Records are write-once: storing a second record for the same trace ID
// fails with evidence.DuplicateError, preserving the seal-exactly-once
// property end to end.
package storage
