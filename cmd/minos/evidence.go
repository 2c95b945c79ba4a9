package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"minos-hq/minos/pkg/cli"
	"minos-hq/minos/pkg/config"
	"minos-hq/minos/pkg/evidence"
	"minos-hq/minos/pkg/evidence/export"
	"minos-hq/minos/pkg/policy"
)

var evidenceFlags struct {
	format   string
	output   string
	actorID  string
	surface  string
	decision string
	state    string
	since    string
	until    string
	limit    int
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Query and export stored evidence records",
	Long: `Work with the evidence store configured in the config file.

These commands open the storage backend directly; run them against a
stopped server or a WAL-mode SQLite database.`,
}

var evidenceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List trace records matching the filters",
	Long: `List stored trace records, newest first.

Examples:
  # Last 20 denials
  minos evidence query --decision DENY --limit 20

  # Everything one actor did this week
  minos evidence query --actor agent_7 --since 2026-08-24T00:00:00Z`,
	RunE: runEvidenceQuery,
}

var evidenceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export trace records",
	Long: `Export matching trace records in one of three formats:

  json    a JSON array of trace records
  csv     indexed fields only, one row per record
  packet  a self-contained evidence bundle with a verifiable content hash

Examples:
  # Export everything as a packet for an auditor
  minos evidence export --format packet --output evidence-packet.json

  # Export one actor's denials as CSV
  minos evidence export --format csv --decision DENY --actor agent_7`,
	RunE: runEvidenceExport,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceQueryCmd)
	evidenceCmd.AddCommand(evidenceExportCmd)

	for _, c := range []*cobra.Command{evidenceQueryCmd, evidenceExportCmd} {
		c.Flags().StringVar(&evidenceFlags.actorID, "actor", "", "filter by actor ID")
		c.Flags().StringVar(&evidenceFlags.surface, "surface", "", "filter by trust surface tag")
		c.Flags().StringVar(&evidenceFlags.decision, "decision", "", "filter by decision (ALLOW, ESCALATE, DENY)")
		c.Flags().StringVar(&evidenceFlags.state, "state", "", "filter by state (sealed, halted)")
		c.Flags().StringVar(&evidenceFlags.since, "since", "", "only records created at or after this RFC 3339 time")
		c.Flags().StringVar(&evidenceFlags.until, "until", "", "only records created at or before this RFC 3339 time")
		c.Flags().IntVar(&evidenceFlags.limit, "limit", 0, "maximum records (0 means all)")
	}
	evidenceExportCmd.Flags().StringVarP(&evidenceFlags.format, "format", "f", "json", "export format (json, csv, packet)")
	evidenceExportCmd.Flags().StringVarP(&evidenceFlags.output, "output", "o", "", "output file (default stdout)")
}

func runEvidenceQuery(cmd *cobra.Command, args []string) error {
	_, store, query, err := openEvidence()
	if err != nil {
		return err
	}
	defer store.Close()

	if query.Limit == 0 {
		query.Limit = 50
	}
	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("evidence query", err)
	}

	if len(records) == 0 {
		fmt.Println("No matching records")
		return nil
	}
	fmt.Printf("%-36s  %-5s  %-8s  %-4s  %-20s  %s\n", "TRACE", "SURF", "DECISION", "RISK", "CREATED", "ACTOR")
	for _, r := range records {
		fmt.Printf("%-36s  %-5s  %-8s  %-4d  %-20s  %s\n",
			r.ID, r.Surface, r.Decision, r.RiskScore,
			r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), r.ActorID)
	}
	fmt.Printf("\n%d records\n", len(records))
	return nil
}

func runEvidenceExport(cmd *cobra.Command, args []string) error {
	cfg, store, query, err := openEvidence()
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := cmd.Context()

	var exporter evidence.Exporter
	switch evidenceFlags.format {
	case "json":
		exporter = export.NewJSONExporter(true)
	case "csv":
		exporter = export.NewCSVExporter(true)
	case "packet":
		builder := export.NewPacketBuilder("minos/" + Version)
		// Bundle the configured policy document so the packet verifies
		// against the rule set in force. Records bound to older snapshots
		// keep their hash without a document.
		if snap, err := policy.Load(cfg.Policy.FilePath); err == nil {
			builder.Resolver = func(hash string) ([]byte, bool) {
				if snap.Hash() == hash {
					return snap.Canonical(), true
				}
				return nil, false
			}
		}
		exporter = builder
	default:
		return cli.NewConfigError("format", fmt.Sprintf("unknown export format %q", evidenceFlags.format))
	}

	out := io.Writer(os.Stdout)
	showProgress := false
	if evidenceFlags.output != "" {
		f, err := os.Create(evidenceFlags.output)
		if err != nil {
			return cli.NewCommandError("evidence export", err)
		}
		defer f.Close()
		out = f
		showProgress = true
	}

	count, err := store.Count(ctx, query)
	if err != nil {
		return cli.NewCommandError("evidence export", err)
	}
	if query.Limit == 0 {
		query.Limit = int(count)
	}

	records, err := collectRecords(ctx, store, query, count, showProgress)
	if err != nil {
		return cli.NewCommandError("evidence export", err)
	}

	if err := exporter.Export(ctx, records, out); err != nil {
		return cli.NewCommandError("evidence export", err)
	}
	if evidenceFlags.output != "" {
		fmt.Printf("Exported %d records to %s\n", len(records), evidenceFlags.output)
	}
	return nil
}

// collectRecords drains the storage stream, reporting progress to stderr
// for file exports.
func collectRecords(ctx context.Context, store evidence.Storage, query *evidence.Query,
	total int64, showProgress bool) ([]*evidence.TraceRecord, error) {

	recordCh, errCh, err := store.QueryStream(ctx, query)
	if err != nil {
		return nil, err
	}

	var progress cli.ProgressReporter
	if showProgress && total > 0 {
		progress = cli.NewProgressReporter(os.Stderr)
		progress.Start(total)
	}

	var records []*evidence.TraceRecord
	for record := range recordCh {
		records = append(records, record)
		if progress != nil {
			progress.Update(int64(len(records)))
		}
	}
	if err := <-errCh; err != nil {
		if progress != nil {
			progress.Error(err)
		}
		return nil, err
	}
	if progress != nil {
		progress.Finish()
	}
	return records, nil
}

// openEvidence loads the config, opens the configured storage backend, and
// builds the shared filter query from flags.
func openEvidence() (*config.Config, evidence.Storage, *evidence.Query, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if !cfg.Evidence.Enabled {
		return nil, nil, nil, cli.NewConfigError("evidence.enabled", "evidence recording is disabled")
	}
	store, err := newEvidenceStorage(cfg)
	if err != nil {
		return nil, nil, nil, cli.NewConfigError("evidence", err.Error())
	}

	query := &evidence.Query{
		ActorID:  evidenceFlags.actorID,
		Surface:  evidenceFlags.surface,
		Decision: evidenceFlags.decision,
		State:    evidenceFlags.state,
		Limit:    evidenceFlags.limit,
	}
	for _, f := range []struct {
		raw string
		dst **time.Time
	}{
		{evidenceFlags.since, &query.StartTime},
		{evidenceFlags.until, &query.EndTime},
	} {
		if f.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, f.raw)
		if err != nil {
			store.Close()
			return nil, nil, nil, cli.NewConfigError("time", fmt.Sprintf("invalid time %q: must be RFC 3339", f.raw))
		}
		*f.dst = &t
	}
	if err := query.Validate(); err != nil {
		store.Close()
		return nil, nil, nil, cli.NewCommandError("evidence", err)
	}
	return cfg, store, query, nil
}
