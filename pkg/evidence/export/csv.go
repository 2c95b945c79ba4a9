package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"minos-hq/minos/pkg/evidence"
)

// CSVExporter exports trace records to CSV format for spreadsheet review.
// The full trace document is omitted; CSV carries the indexed fields only.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes trace records to the provided writer in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.TraceRecord, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream exports records from a channel in CSV format, flushing
// periodically so long exports make visible progress.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.TraceRecord, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return evidence.NewExportError("csv", recordCount, err)
			}
			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

func headerRow() []string {
	return []string{
		"id", "request_id", "session_id",
		"actor_id", "surface", "intent", "action",
		"state", "decision", "resolution", "risk_score", "simulated",
		"policy_hash", "policy_version",
		"ticket_id", "exportable",
		"created_at", "sealed_at",
	}
}

func recordToRow(record *evidence.TraceRecord) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	return []string{
		record.ID,
		record.RequestID,
		record.SessionID,
		record.ActorID,
		record.Surface,
		record.Intent,
		record.Action,
		record.State,
		record.Decision,
		record.Resolution,
		fmt.Sprintf("%d", record.RiskScore),
		fmt.Sprintf("%t", record.Simulated),
		record.PolicyHash,
		record.PolicyVersion,
		record.TicketID,
		fmt.Sprintf("%t", record.Exportable),
		formatTime(record.CreatedAt),
		formatTime(record.SealedAt),
	}
}
