// Package policy loads, validates, and versions the policy documents that
// drive gate evaluation.
//
// A policy document is a JSON file carrying per-gate rule lists, per-surface
// allow/control/deny lists, soft-ontology overlays, constitutional pillar
// constraints, an intent taxonomy, and the risk model used by verdict
// resolution. Loading produces an immutable, content-addressed Snapshot;
// the Store swaps the active snapshot atomically so in-flight evaluations
// always observe the exact rule set they started with.
//
// Rules carry heterogeneous match predicates (surface, intent, sensitivity
// threshold, roles) evaluated by a single generic matcher; rule specificity
// is the count of declared predicates and breaks ties during verdict
// resolution.
package policy
