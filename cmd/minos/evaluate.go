package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"minos-hq/minos/pkg/approval"
	"minos-hq/minos/pkg/cli"
	"minos-hq/minos/pkg/config"
	"minos-hq/minos/pkg/detect"
	"minos-hq/minos/pkg/pipeline"
	"minos-hq/minos/pkg/policy"
	"minos-hq/minos/pkg/telemetry/logging"
)

var evaluateFlags struct {
	requestFile string
	policyPath  string
	mode        string
	output      string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single request without starting a server",
	Long: `Evaluate one governed request through the gate pipeline and print the
resulting trace. Escalations are reported as ESCALATE; without a running
approval queue they cannot be resolved here.

The request is read as JSON from --request, or from stdin when the flag
is omitted:

  {"actor": {"id": "analyst_1", "roles": ["analyst"]},
   "surface": "S-O", "action": "sharepoint_read",
   "content": "read the quarterly report"}

Examples:
  # Evaluate a request file against the configured policy
  minos evaluate --request request.json

  # Pipe a request and force simulate mode
  cat request.json | minos evaluate --mode simulate

  # Evaluate against an explicit policy file
  minos evaluate --request request.json --policy policy.json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.requestFile, "request", "r", "", "request JSON file (default stdin)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.policyPath, "policy", "", "override policy file path")
	evaluateCmd.Flags().StringVar(&evaluateFlags.mode, "mode", "", "override pipeline mode (enforce, simulate)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.output, "output", "o", "text", "output format (text, json)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if evaluateFlags.policyPath != "" {
		cfg.Policy.FilePath = evaluateFlags.policyPath
	}
	if evaluateFlags.mode != "" {
		cfg.Pipeline.Mode = evaluateFlags.mode
	}

	// One-shot evaluation logs to stderr so stdout stays parseable.
	logCfg := cfg.Telemetry.Logging
	if !verbose {
		logCfg.Level = "error"
	}
	logger, err := logging.Setup(logCfg, os.Stderr)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	req, err := readRequest(evaluateFlags.requestFile)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	if req.Mode == "" {
		req.Mode = pipeline.Mode(cfg.Pipeline.Mode)
	}

	store := policy.NewStore(logger)
	if _, err := store.LoadAndActivate(cfg.Policy.FilePath); err != nil {
		return cli.NewConfigError("policy.file_path", fmt.Sprintf("failed to load policy: %v", err))
	}

	schema := detect.NewSchemaValidator(detect.SchemaConfig{
		RequiredFields:    cfg.Detectors.Schema.RequiredFields,
		MaxContentLength:  cfg.Detectors.Schema.MaxContentLength,
		InjectionPatterns: cfg.Detectors.Schema.InjectionPatterns,
	})
	sensitivity := detect.NewSensitivityDetector(detect.SensitivityConfig{
		Custom:         cfg.Detectors.Sensitivity.CustomPatterns,
		CustomSeverity: policy.Severity(cfg.Detectors.Sensitivity.CustomSeverity),
	})
	sensors := detect.NewRegistry(detect.NewBounded(sensitivity, cfg.Detectors.Timeout))

	engine, err := pipeline.NewEngine(store, schema, detect.NewIntentClassifier(), sensors,
		approval.NewMemoryStore(), nil, nil,
		&pipeline.Config{
			LowConfidenceFloor: cfg.Pipeline.LowConfidenceFloor,
			DetectorTimeout:    cfg.Detectors.Timeout,
		}, logger)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	trace, err := engine.Evaluate(cmd.Context(), *req)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	if evaluateFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, trace)
	}
	printTraceSummary(trace)
	return nil
}

func readRequest(path string) (*pipeline.Request, error) {
	var data []byte
	var err error
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	var req pipeline.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid request JSON: %w", err)
	}
	return &req, nil
}

func printTraceSummary(t *pipeline.Trace) {
	fmt.Printf("Trace:    %s\n", t.ID)
	fmt.Printf("Surface:  %s\n", t.Surface)
	if t.Intent != "" {
		fmt.Printf("Intent:   %s\n", t.Intent)
	}
	fmt.Printf("State:    %s\n", t.State)
	if t.Verdict != nil {
		fmt.Printf("Decision: %s", t.Verdict.Decision)
		if t.Verdict.Simulated {
			fmt.Print(" (simulated)")
		}
		fmt.Println()
		if t.Verdict.Reason != "" {
			fmt.Printf("Reason:   %s\n", t.Verdict.Reason)
		}
		fmt.Printf("Risk:     %d\n", t.Verdict.RiskScore)
	}
	if t.TicketID != "" {
		fmt.Printf("Ticket:   %s\n", t.TicketID)
	}
	fmt.Printf("Policy:   %s (%s)\n", t.PolicyVersion, t.PolicyHash[:12])
	for _, gr := range t.Results {
		fmt.Printf("  gate %d %-21s %s\n", gr.Gate, gr.Name, gr.Outcome)
	}
}
