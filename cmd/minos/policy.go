package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minos-hq/minos/pkg/cli"
	"minos-hq/minos/pkg/policy"
)

var policyFlags struct {
	output string
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Validate, hash, and diff policy files",
	Long: `Work with policy files without starting a server.

A policy file must parse, pass structural validation, and resolve its
overlays before it can be activated. These commands run the same loader
the server uses.`,
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a policy file",
	Long: `Validate a policy file and report its effective rule set.

Exits non-zero when the file fails parsing or validation.

Examples:
  minos policy validate policy.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPolicyValidate,
}

var policyHashCmd = &cobra.Command{
	Use:   "hash <file>",
	Short: "Print the content hash of a policy file",
	Long: `Print the content-addressed hash of a policy file.

The hash identifies the snapshot in trace records and evidence exports;
two files with the same effective content produce the same hash.

Examples:
  minos policy hash policy.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPolicyHash,
}

var policyDiffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Show structural changes between two policy files",
	Long: `Compute the structural changes from one policy file to another:
added, removed, and modified rules, surface list edits, overlay toggles,
and risk model changes.

Examples:
  minos policy diff policy-v1.json policy-v2.json
  minos policy diff policy-v1.json policy-v2.json --output json`,
	Args: cobra.ExactArgs(2),
	RunE: runPolicyDiff,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyHashCmd)
	policyCmd.AddCommand(policyDiffCmd)

	policyCmd.PersistentFlags().StringVarP(&policyFlags.output, "output", "o", "text", "output format (text, json)")
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	snap, err := policy.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Policy invalid: %v\n", err)
		return cli.NewCommandError("policy validate", err)
	}

	if policyFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, map[string]interface{}{
			"version": snap.Version(),
			"hash":    snap.Hash(),
			"rules":   len(snap.Rules()),
		})
	}
	fmt.Printf("Policy valid\n")
	fmt.Printf("Version: %s\n", snap.Version())
	fmt.Printf("Hash:    %s\n", snap.Hash())
	fmt.Printf("Rules:   %d effective\n", len(snap.Rules()))
	return nil
}

func runPolicyHash(cmd *cobra.Command, args []string) error {
	snap, err := policy.Load(args[0])
	if err != nil {
		return cli.NewCommandError("policy hash", err)
	}
	fmt.Println(snap.Hash())
	return nil
}

func runPolicyDiff(cmd *cobra.Command, args []string) error {
	oldSnap, err := policy.Load(args[0])
	if err != nil {
		return cli.NewCommandError("policy diff", fmt.Errorf("failed to load %s: %w", args[0], err))
	}
	newSnap, err := policy.Load(args[1])
	if err != nil {
		return cli.NewCommandError("policy diff", fmt.Errorf("failed to load %s: %w", args[1], err))
	}

	changes := policy.Diff(oldSnap, newSnap)

	if policyFlags.output == "json" {
		if changes == nil {
			changes = []policy.Change{}
		}
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, changes)
	}

	if len(changes) == 0 {
		fmt.Println("No changes")
		return nil
	}
	fmt.Printf("%d changes from %s to %s:\n", len(changes), oldSnap.Version(), newSnap.Version())
	for _, c := range changes {
		if c.Detail != "" {
			fmt.Printf("  %-22s %s: %s\n", c.Kind, c.Target, c.Detail)
		} else {
			fmt.Printf("  %-22s %s\n", c.Kind, c.Target)
		}
	}
	return nil
}
