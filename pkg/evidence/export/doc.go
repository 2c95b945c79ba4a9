// Package export renders stored trace records for audit consumers.
//
// Three formats are supported:
//
//   - JSONExporter: records as a JSON array, optionally pretty-printed,
//     with a streaming variant for large result sets.
//   - CSVExporter: one flattened row per record for spreadsheet review.
//   - PacketBuilder: a self-contained evidence packet embedding the records,
//     the query that selected them, the policy hashes they bound, and a
//     SHA-256 content hash over the record set so a recipient can verify
//     the packet was not altered after export.
package export
