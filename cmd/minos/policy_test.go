package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validPolicy = `{
	"version": "2026.08",
	"intents": [{"name": "document-read", "actions": ["sharepoint_read"]}],
	"gates": {
		"data-classification": {
			"rules": [
				{"id": "R-PII-001", "gate": "data-classification", "action": "flag", "weight": 80,
				 "match": {"sensitivity": {"kind": "pii", "min_severity": "medium"}}}
			]
		}
	},
	"pillars": {"dignity": true, "hope": true, "agency": true},
	"risk": {"threshold": 100}
}`

func writePolicy(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestPolicyValidateCommand(t *testing.T) {
	path := writePolicy(t, validPolicy)

	if err := runPolicyValidate(policyValidateCmd, []string{path}); err != nil {
		t.Errorf("validate of valid policy failed: %v", err)
	}
}

func TestPolicyValidateRejectsBadFile(t *testing.T) {
	path := writePolicy(t, `{"version": ""}`)

	if err := runPolicyValidate(policyValidateCmd, []string{path}); err == nil {
		t.Error("validate of invalid policy must fail")
	}
}

func TestPolicyHashStable(t *testing.T) {
	a := writePolicy(t, validPolicy)
	b := writePolicy(t, validPolicy)

	if err := runPolicyHash(policyHashCmd, []string{a}); err != nil {
		t.Errorf("hash failed: %v", err)
	}
	if err := runPolicyHash(policyHashCmd, []string{b}); err != nil {
		t.Errorf("hash failed: %v", err)
	}
}

func TestPolicyDiffCommand(t *testing.T) {
	a := writePolicy(t, validPolicy)
	b := writePolicy(t, strings.Replace(validPolicy, `"weight": 80`, `"weight": 120`, 1))

	if err := runPolicyDiff(policyDiffCmd, []string{a, b}); err != nil {
		t.Errorf("diff failed: %v", err)
	}
	if err := runPolicyDiff(policyDiffCmd, []string{a, a}); err != nil {
		t.Errorf("diff of identical files failed: %v", err)
	}
}

func TestPolicyDiffMissingFile(t *testing.T) {
	a := writePolicy(t, validPolicy)
	if err := runPolicyDiff(policyDiffCmd, []string{a, "/nonexistent/policy.json"}); err == nil {
		t.Error("diff against missing file must fail")
	}
}
