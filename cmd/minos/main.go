// Minos is a governance runtime for AI agent actions.
//
// It evaluates agent requests through an eight-gate policy pipeline,
// producing ALLOW, ESCALATE, or DENY verdicts with sealed evidence traces:
//   - Content-addressed policy snapshots with hot reload
//   - PII, injection, and intent detection
//   - Trust surface classification for agent I/O
//   - Human-in-the-loop approval for escalated actions
//   - Durable evidence records with export and retention
//
// Usage:
//
//	# Start the governance server with default configuration
//	minos run
//
//	# Start with a custom configuration file
//	minos run --config /etc/minos/minos.yaml
//
//	# Evaluate a single request without a server
//	minos evaluate --request request.json
//
//	# Validate, hash, or diff policy files
//	minos policy validate policy.json
//	minos policy hash policy.json
//	minos policy diff old.json new.json
//
//	# Export evidence records
//	minos evidence export --format packet --output traces.json
//
//	# Show version information
//	minos version
package main

func main() {
	Execute()
}
