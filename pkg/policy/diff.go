package policy

import (
	"fmt"
	"reflect"
	"sort"

	"minos-hq/minos/pkg/surface"
)

// ChangeKind classifies one structural difference between two snapshots.
type ChangeKind string

const (
	ChangeVersion        ChangeKind = "version-changed"
	ChangeRuleAdded      ChangeKind = "rule-added"
	ChangeRuleRemoved    ChangeKind = "rule-removed"
	ChangeRuleModified   ChangeKind = "rule-modified"
	ChangeSurfaceLists   ChangeKind = "surface-lists-changed"
	ChangeOverlayToggled ChangeKind = "overlay-toggled"
	ChangeRiskModel      ChangeKind = "risk-model-changed"
	ChangePillars        ChangeKind = "pillars-changed"
)

// Change describes one structural difference found by Diff.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Target string     `json:"target"`
	Detail string     `json:"detail,omitempty"`
}

// Diff computes the structural changes from snapshot a to snapshot b. Equal
// snapshots (by content hash) produce no changes.
func Diff(a, b *Snapshot) []Change {
	if a == nil || b == nil || a.Equal(b) {
		return nil
	}

	var changes []Change

	if a.version != b.version {
		changes = append(changes, Change{
			Kind:   ChangeVersion,
			Target: b.version,
			Detail: fmt.Sprintf("%q -> %q", a.version, b.version),
		})
	}

	aRules := rulesByID(a.rules)
	bRules := rulesByID(b.rules)

	for _, id := range sortedKeys(aRules) {
		br, ok := bRules[id]
		if !ok {
			changes = append(changes, Change{Kind: ChangeRuleRemoved, Target: id})
			continue
		}
		if !reflect.DeepEqual(aRules[id], br) {
			changes = append(changes, Change{Kind: ChangeRuleModified, Target: id})
		}
	}
	for _, id := range sortedKeys(bRules) {
		if _, ok := aRules[id]; !ok {
			changes = append(changes, Change{Kind: ChangeRuleAdded, Target: id})
		}
	}

	for _, tag := range surface.All() {
		if !reflect.DeepEqual(a.Lists(tag), b.Lists(tag)) {
			changes = append(changes, Change{Kind: ChangeSurfaceLists, Target: tag.String()})
		}
	}

	overlayIDs := make(map[string]bool)
	for id := range a.overlays {
		overlayIDs[id] = true
	}
	for id := range b.overlays {
		overlayIDs[id] = true
	}
	for _, id := range sortedBoolKeys(overlayIDs) {
		aOn, aHas := a.overlays[id]
		bOn, bHas := b.overlays[id]
		if aHas != bHas || aOn != bOn {
			changes = append(changes, Change{
				Kind:   ChangeOverlayToggled,
				Target: id,
				Detail: fmt.Sprintf("enabled %v -> %v", aHas && aOn, bHas && bOn),
			})
		}
	}

	if !reflect.DeepEqual(a.risk, b.risk) {
		changes = append(changes, Change{
			Kind:   ChangeRiskModel,
			Target: "risk",
			Detail: fmt.Sprintf("threshold %d -> %d", a.risk.Threshold, b.risk.Threshold),
		})
	}

	if a.pillars != b.pillars {
		changes = append(changes, Change{Kind: ChangePillars, Target: "pillars"})
	}

	return changes
}

func rulesByID(rules []Rule) map[string]Rule {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		m[r.ID] = r
	}
	return m
}

func sortedKeys(m map[string]Rule) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedBoolKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
