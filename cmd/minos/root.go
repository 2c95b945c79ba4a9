package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minos-hq/minos/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "minos",
	Short: "Minos - governance runtime for AI agent actions",
	Long: `Minos is a governance runtime that evaluates AI agent actions through
an eight-gate policy pipeline, producing ALLOW, ESCALATE, or DENY verdicts
with sealed evidence traces.

It provides:
  - Content-addressed policy snapshots with hot reload
  - PII, injection, and intent detection
  - Trust surface classification for agent inputs and outputs
  - Human-in-the-loop approval for escalated actions
  - Durable evidence records with export and retention`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "minos.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
