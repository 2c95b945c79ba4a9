package policy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validDoc = `{
	"version": "compliance-v1",
	"intents": [
		{"name": "document-read", "actions": ["sharepoint_read"]},
		{"name": "external-data-share", "actions": ["email_send"], "keywords": ["external", "send"]}
	],
	"gates": {
		"data-classification": {
			"rules": [
				{"id": "R-PII-001", "action": "flag", "weight": 80,
				 "match": {"sensitivity": {"kind": "pii", "min_severity": "medium"}}}
			]
		},
		"policy-lookup": {
			"rules": [
				{"id": "R-SHARE-001", "action": "deny", "pillar": "dignity",
				 "match": {"surface": "U-O", "intent": "external-data-share"}}
			]
		}
	},
	"surfaces": {
		"U-O": {"deny": ["external-data-share"], "control": ["jira_create"]}
	},
	"overlays": [
		{"id": "org-sop", "enabled": true,
		 "rules": [{"id": "R-SOP-001", "gate": "policy-lookup", "action": "escalate",
		            "match": {"intent": "document-read"}, "weight": 10}]}
	],
	"pillars": {"dignity": true, "hope": true, "agency": true},
	"risk": {"threshold": 100, "severity_weights": {"critical": 50}}
}`

func parseValid(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := Parse([]byte(validDoc), "test")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return snap
}

func TestParseValidDocument(t *testing.T) {
	snap := parseValid(t)

	if snap.Version() != "compliance-v1" {
		t.Errorf("version = %q, want compliance-v1", snap.Version())
	}
	if snap.Hash() == "" {
		t.Error("snapshot hash is empty")
	}
	if got := len(snap.Rules()); got != 3 {
		t.Errorf("effective rules = %d, want 3 (2 base + 1 overlay)", got)
	}

	r, ok := snap.Rule("R-SOP-001")
	if !ok {
		t.Fatal("overlay rule R-SOP-001 missing from effective set")
	}
	if r.Ontology != OntologySoft {
		t.Errorf("overlay rule ontology = %q, want soft", r.Ontology)
	}

	base, ok := snap.Rule("R-PII-001")
	if !ok {
		t.Fatal("base rule R-PII-001 missing")
	}
	if base.Ontology != OntologyHard {
		t.Errorf("base rule ontology = %q, want hard (default)", base.Ontology)
	}
	if base.Gate != GateDataClassification {
		t.Errorf("base rule gate = %q, want inherited %q", base.Gate, GateDataClassification)
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		problem string
	}{
		{
			name:    "malformed json",
			doc:     `{"version": `,
			problem: "",
		},
		{
			name:    "missing version",
			doc:     `{"gates": {}}`,
			problem: "version is required",
		},
		{
			name: "undefined gate section",
			doc: `{"version": "v1", "gates": {"gate-nine": {"rules": [
				{"id": "R1", "action": "deny", "match": {"surface": "U-I"}}]}}}`,
			problem: "undefined gate",
		},
		{
			name: "rule without predicates",
			doc: `{"version": "v1", "gates": {"policy-lookup": {"rules": [
				{"id": "R1", "action": "deny", "match": {}}]}}}`,
			problem: "no surface, intent, sensitivity, or role predicate",
		},
		{
			name: "rule without action",
			doc: `{"version": "v1", "gates": {"policy-lookup": {"rules": [
				{"id": "R1", "match": {"surface": "U-I"}}]}}}`,
			problem: "no action",
		},
		{
			name: "duplicate rule ids",
			doc: `{"version": "v1", "gates": {"policy-lookup": {"rules": [
				{"id": "R1", "action": "flag", "match": {"surface": "U-I"}},
				{"id": "R1", "action": "flag", "match": {"surface": "U-O"}}]}}}`,
			problem: "duplicate rule id",
		},
		{
			name: "unknown surface in rule",
			doc: `{"version": "v1", "gates": {"policy-lookup": {"rules": [
				{"id": "R1", "action": "flag", "match": {"surface": "X-I"}}]}}}`,
			problem: "unknown surface",
		},
		{
			name: "intent outside taxonomy",
			doc: `{"version": "v1", "gates": {"policy-lookup": {"rules": [
				{"id": "R1", "action": "flag", "match": {"intent": "ghost-intent"}}]}}}`,
			problem: "absent from the taxonomy",
		},
		{
			name: "soft rule may not deny",
			doc: `{"version": "v1", "overlays": [{"id": "o1", "enabled": true, "rules": [
				{"id": "R1", "gate": "policy-lookup", "action": "deny", "match": {"surface": "U-I"}}]}]}`,
			problem: "soft ontology and may not deny",
		},
		{
			name: "cyclic overlay dependency",
			doc: `{"version": "v1", "overlays": [
				{"id": "o1", "enabled": true, "requires": ["o2"]},
				{"id": "o2", "enabled": true, "requires": ["o1"]}]}`,
			problem: "cyclic overlay dependency",
		},
		{
			name: "overlay requires undefined overlay",
			doc: `{"version": "v1", "overlays": [
				{"id": "o1", "enabled": true, "requires": ["missing"]}]}`,
			problem: "requires undefined overlay",
		},
		{
			name: "enforced pillar rule cannot be disabled",
			doc: `{"version": "v1", "pillars": {"dignity": true},
				"gates": {"policy-lookup": {"rules": [
				{"id": "R1", "action": "deny", "pillar": "dignity", "enabled": false,
				 "match": {"surface": "U-O"}}]}}}`,
			problem: "cannot be disabled",
		},
		{
			name: "weight out of range",
			doc: `{"version": "v1", "gates": {"policy-lookup": {"rules": [
				{"id": "R1", "action": "flag", "weight": 5000, "match": {"surface": "U-I"}}]}}}`,
			problem: "outside [0,1000]",
		},
		{
			name:    "negative risk threshold",
			doc:     `{"version": "v1", "risk": {"threshold": -5}}`,
			problem: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "test")
			if err == nil {
				t.Fatal("Parse accepted invalid document")
			}
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("error type = %T, want *LoadError", err)
			}
			if tt.problem != "" && !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.problem)
			}
		})
	}
}

func TestParseDefaultsRiskThreshold(t *testing.T) {
	snap, err := Parse([]byte(`{"version": "v1"}`), "test")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := snap.Risk().Threshold; got != defaultRiskThreshold {
		t.Errorf("default threshold = %d, want %d", got, defaultRiskThreshold)
	}
}

func TestDisabledOverlayContributesNoRules(t *testing.T) {
	doc := `{"version": "v1", "overlays": [
		{"id": "o1", "enabled": false, "rules": [
			{"id": "R1", "gate": "policy-lookup", "action": "escalate", "match": {"surface": "U-I"}}]}]}`
	snap, err := Parse([]byte(doc), "test")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(snap.Rules()) != 0 {
		t.Errorf("disabled overlay contributed %d rules, want 0", len(snap.Rules()))
	}
	if snap.OverlayEnabled("o1") {
		t.Error("OverlayEnabled(o1) = true, want false")
	}
}

func TestOverlayWithDisabledDependencyInactive(t *testing.T) {
	doc := `{"version": "v1", "overlays": [
		{"id": "base", "enabled": false},
		{"id": "ext", "enabled": true, "requires": ["base"], "rules": [
			{"id": "R1", "gate": "policy-lookup", "action": "escalate", "match": {"surface": "U-I"}}]}]}`
	snap, err := Parse([]byte(doc), "test")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(snap.Rules()) != 0 {
		t.Errorf("overlay with disabled dependency contributed %d rules, want 0", len(snap.Rules()))
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	if err := os.WriteFile(path, []byte(validDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if snap.Version() != "compliance-v1" {
		t.Errorf("version = %q", snap.Version())
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
