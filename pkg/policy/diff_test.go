package policy

import (
	"strings"
	"testing"
)

func TestDiffIdenticalSnapshots(t *testing.T) {
	a := parseValid(t)
	b := parseValid(t)
	if changes := Diff(a, b); len(changes) != 0 {
		t.Errorf("Diff of equal snapshots = %+v, want none", changes)
	}
}

func TestDiffDetectsChanges(t *testing.T) {
	a := parseValid(t)

	modified := validDoc
	modified = strings.Replace(modified, `"weight": 80`, `"weight": 120`, 1)
	modified = strings.Replace(modified, `"id": "org-sop", "enabled": true`, `"id": "org-sop", "enabled": false`, 1)
	modified = strings.Replace(modified, `"threshold": 100`, `"threshold": 150`, 1)

	b, err := Parse([]byte(modified), "modified")
	if err != nil {
		t.Fatalf("Parse modified: %v", err)
	}

	changes := Diff(a, b)
	kinds := make(map[ChangeKind][]string)
	for _, c := range changes {
		kinds[c.Kind] = append(kinds[c.Kind], c.Target)
	}

	if got := kinds[ChangeRuleModified]; len(got) != 1 || got[0] != "R-PII-001" {
		t.Errorf("rule-modified = %v, want [R-PII-001]", got)
	}
	// Disabling the overlay removes its rule from the effective set.
	if got := kinds[ChangeRuleRemoved]; len(got) != 1 || got[0] != "R-SOP-001" {
		t.Errorf("rule-removed = %v, want [R-SOP-001]", got)
	}
	if got := kinds[ChangeOverlayToggled]; len(got) != 1 || got[0] != "org-sop" {
		t.Errorf("overlay-toggled = %v, want [org-sop]", got)
	}
	if got := kinds[ChangeRiskModel]; len(got) != 1 {
		t.Errorf("risk-model-changed = %v, want one entry", got)
	}
}

func TestDiffNilSafe(t *testing.T) {
	a := parseValid(t)
	if Diff(nil, a) != nil || Diff(a, nil) != nil {
		t.Error("Diff with nil snapshot should return nil")
	}
}
