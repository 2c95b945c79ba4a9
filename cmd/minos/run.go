package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"minos-hq/minos/pkg/approval"
	"minos-hq/minos/pkg/cli"
	"minos-hq/minos/pkg/config"
	"minos-hq/minos/pkg/detect"
	"minos-hq/minos/pkg/evidence"
	"minos-hq/minos/pkg/evidence/recorder"
	"minos-hq/minos/pkg/evidence/retention"
	"minos-hq/minos/pkg/evidence/storage"
	"minos-hq/minos/pkg/pipeline"
	"minos-hq/minos/pkg/policy"
	"minos-hq/minos/pkg/server"
	"minos-hq/minos/pkg/telemetry/health"
	"minos-hq/minos/pkg/telemetry/logging"
	"minos-hq/minos/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	policyPath    string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Minos governance server",
	Long: `Start the Minos governance server with the specified configuration.

The server evaluates agent requests through the gate pipeline, records
sealed evidence traces, and exposes the approval queue for escalations.

Examples:
  # Start with default config
  minos run

  # Start with custom config
  minos run --config /etc/minos/minos.yaml

  # Override listen address
  minos run --listen 0.0.0.0:8080

  # Validate config without starting the server
  minos run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.policyPath, "policy", "", "override policy file path")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.policyPath != "" {
		cfg.Policy.FilePath = runFlags.policyPath
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging, nil)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("Configuration valid")
		return nil
	}

	fmt.Printf("Minos v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	ctx := cli.SetupSignalHandler()

	// Metrics collector; also the pipeline observer.
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	// Policy store with hot reload.
	store := policy.NewStore(logger)
	snap, err := store.LoadAndActivate(cfg.Policy.FilePath)
	if err != nil {
		return cli.NewConfigError("policy.file_path", fmt.Sprintf("failed to load policy: %v", err))
	}
	store.OnSwap(func(old, new *policy.Snapshot) {
		collector.RecordPolicyReload("activated", len(new.Rules()))
	})
	collector.RecordPolicyReload("activated", len(snap.Rules()))
	if cfg.Policy.Watch {
		if err := store.Watch(ctx, cfg.Policy.WatchDebounce); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()
	}
	fmt.Printf("Policy loaded: version %s, hash %s, %d rules\n",
		snap.Version(), snap.Hash()[:12], len(snap.Rules()))

	// Detectors.
	schema := detect.NewSchemaValidator(detect.SchemaConfig{
		RequiredFields:    cfg.Detectors.Schema.RequiredFields,
		MaxContentLength:  cfg.Detectors.Schema.MaxContentLength,
		InjectionPatterns: cfg.Detectors.Schema.InjectionPatterns,
	})
	intents := detect.NewIntentClassifier()
	sensitivity := detect.NewSensitivityDetector(detect.SensitivityConfig{
		Custom:         cfg.Detectors.Sensitivity.CustomPatterns,
		CustomSeverity: policy.Severity(cfg.Detectors.Sensitivity.CustomSeverity),
	})
	sensors := detect.NewRegistry(detect.NewBounded(sensitivity, cfg.Detectors.Timeout))

	// Approval store.
	approvals, err := newApprovalStore(cfg)
	if err != nil {
		return cli.NewConfigError("approval", err.Error())
	}
	defer approvals.Close()
	fmt.Printf("Approval store initialized (%s)\n", cfg.Approval.Backend)

	// Evidence storage, recorder, and retention.
	var traceStore evidence.Storage
	var rec *recorder.Recorder
	if cfg.Evidence.Enabled {
		traceStore, err = newEvidenceStorage(cfg)
		if err != nil {
			return cli.NewConfigError("evidence", err.Error())
		}
		defer traceStore.Close()

		rec, err = recorder.New(traceStore, &recorder.Config{
			Enabled:       true,
			AsyncBuffer:   cfg.Evidence.Recorder.AsyncBuffer,
			WriteTimeout:  cfg.Evidence.Recorder.WriteTimeout,
			RetainContent: cfg.Evidence.Recorder.RetainContent,
		}, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer rec.Close()

		if cfg.Evidence.Retention.PruneSchedule != "" {
			pruner := retention.NewPruner(traceStore, &retention.Config{
				RetentionDays:       cfg.Evidence.Retention.Days,
				PruneSchedule:       cfg.Evidence.Retention.PruneSchedule,
				ArchiveBeforeDelete: cfg.Evidence.Retention.ArchiveBeforeDelete,
				ArchivePath:         cfg.Evidence.Retention.ArchivePath,
				MaxRecords:          cfg.Evidence.Retention.MaxRecords,
			})
			pruner.SetObserver(collector)
			if err := pruner.Start(ctx); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					slog.Debug("evidence retention scheduler started", "next_pruning", next)
				}
			}
		}
		fmt.Printf("Evidence store initialized (%s)\n", cfg.Evidence.Backend)
	}

	// Pipeline engine. A nil recorder interface must stay nil, not a typed
	// nil pointer.
	var engineRecorder pipeline.Recorder
	if rec != nil {
		engineRecorder = rec
	}
	engine, err := pipeline.NewEngine(store, schema, intents, sensors, approvals, engineRecorder, collector,
		&pipeline.Config{
			LowConfidenceFloor: cfg.Pipeline.LowConfidenceFloor,
			DetectorTimeout:    cfg.Detectors.Timeout,
		}, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// Health checks.
	checker := health.New(0)
	checker.Register("policy", func(ctx context.Context) error {
		if store.Active() == nil {
			return fmt.Errorf("no active policy snapshot")
		}
		return nil
	})
	checker.Register("approvals", func(ctx context.Context) error {
		_, err := approvals.Pending(ctx)
		return err
	})
	if traceStore != nil {
		checker.Register("evidence", func(ctx context.Context) error {
			_, err := traceStore.Count(ctx, &evidence.Query{Limit: 1})
			return err
		})
	}

	srv, err := server.New(&cfg.Server, server.Dependencies{
		Engine:      engine,
		Policies:    store,
		Approvals:   approvals,
		Storage:     traceStore,
		Export:      cfg.Evidence.Export,
		Health:      checker,
		Metrics:     collector,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		DefaultMode: pipeline.Mode(cfg.Pipeline.Mode),
		Logger:      logger,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Printf("Listening on %s (mode: %s)\n", cfg.Server.ListenAddress, cfg.Pipeline.Mode)
	fmt.Println("Press Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

func newApprovalStore(cfg *config.Config) (approval.Store, error) {
	switch cfg.Approval.Backend {
	case "sqlite":
		return approval.NewSQLiteStore(cfg.Approval.SQLitePath)
	case "memory":
		return approval.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported approval backend: %s", cfg.Approval.Backend)
	}
}

func newEvidenceStorage(cfg *config.Config) (evidence.Storage, error) {
	switch cfg.Evidence.Backend {
	case "sqlite":
		return storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Evidence.SQLite.Path,
			MaxOpenConns: cfg.Evidence.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Evidence.SQLite.MaxIdleConns,
			WALMode:      cfg.Evidence.SQLite.WALMode,
			BusyTimeout:  cfg.Evidence.SQLite.BusyTimeout,
		})
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported evidence backend: %s", cfg.Evidence.Backend)
	}
}
