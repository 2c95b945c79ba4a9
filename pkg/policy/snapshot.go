package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"minos-hq/minos/pkg/surface"
)

// Snapshot is an immutable, content-addressed view of a validated policy
// document with all enabled overlays folded in. Every trace binds to one
// snapshot at creation and evaluates against it for the trace's whole
// lifetime; the snapshot hash recorded in the trace makes the decision
// reproducible against the exact rule set in force.
type Snapshot struct {
	version   string
	hash      string
	canonical []byte
	loadedAt  time.Time

	rules    []Rule
	byGate   map[string][]Rule
	surfaces map[surface.Tag]SurfaceLists
	intents  []Intent
	pillars  Pillars
	risk     RiskModel
	overlays map[string]bool
}

// normalizedPolicy is the canonical form hashed for content addressing. Two
// documents producing identical effective rule sets hash equal regardless of
// file origin, ordering, or formatting.
type normalizedPolicy struct {
	Rules    []Rule                   `json:"rules"`
	Surfaces map[string]SurfaceLists  `json:"surfaces"`
	Intents  []Intent                 `json:"intents"`
	Pillars  Pillars                  `json:"pillars"`
	Risk     normalizedRisk           `json:"risk"`
}

type normalizedRisk struct {
	Threshold       int   `json:"threshold"`
	SeverityWeights []int `json:"severity_weights"`
}

func newSnapshot(doc *Document, effective []Rule) *Snapshot {
	// Gate sections come out of a map; order the effective set by gate then
	// ID so evaluation and tie-breaking are deterministic across loads.
	effective = append([]Rule(nil), effective...)
	sort.Slice(effective, func(i, j int) bool {
		gi, gj := GateNumber(effective[i].Gate), GateNumber(effective[j].Gate)
		if gi != gj {
			return gi < gj
		}
		return effective[i].ID < effective[j].ID
	})

	s := &Snapshot{
		version:  doc.Version,
		loadedAt: time.Now().UTC(),
		rules:    effective,
		byGate:   make(map[string][]Rule),
		surfaces: make(map[surface.Tag]SurfaceLists),
		intents:  append([]Intent(nil), doc.Intents...),
		pillars:  doc.Pillars,
		risk:     doc.Risk,
		overlays: make(map[string]bool),
	}

	for _, r := range effective {
		s.byGate[r.Gate] = append(s.byGate[r.Gate], r)
	}
	for tag, lists := range doc.Surfaces {
		s.surfaces[surface.Tag(tag)] = lists
	}
	for _, o := range doc.Overlays {
		s.overlays[o.ID] = o.Enabled
	}

	sort.Slice(s.intents, func(i, j int) bool { return s.intents[i].Name < s.intents[j].Name })
	s.canonical, s.hash = s.computeHash()
	return s
}

// computeHash produces the canonical document bytes and the deterministic
// content hash over the normalized effective rule set.
func (s *Snapshot) computeHash() ([]byte, string) {
	rules := append([]Rule(nil), s.rules...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	surfaces := make(map[string]SurfaceLists, len(s.surfaces))
	for tag, lists := range s.surfaces {
		surfaces[string(tag)] = lists
	}

	// Severity weights serialize in fixed rank order so map iteration
	// cannot perturb the hash.
	weights := make([]int, 0, len(severityRank))
	for _, sev := range []Severity{SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		weights = append(weights, s.risk.SeverityWeights[sev])
	}

	norm := normalizedPolicy{
		Rules:    rules,
		Surfaces: surfaces,
		Intents:  s.intents,
		Pillars:  s.pillars,
		Risk: normalizedRisk{
			Threshold:       s.risk.Threshold,
			SeverityWeights: weights,
		},
	}

	data, err := json.Marshal(norm)
	if err != nil {
		// Marshal of plain structs cannot fail; guard anyway.
		return nil, ""
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:])
}

// Version returns the author-assigned document version label.
func (s *Snapshot) Version() string { return s.version }

// Hash returns the content-address of the snapshot.
func (s *Snapshot) Hash() string { return s.hash }

// Canonical returns the normalized document the snapshot hash is computed
// over. A SHA-256 over exactly these bytes reproduces Hash, so evidence
// bundles can embed them for independent re-verification.
func (s *Snapshot) Canonical() []byte {
	return append([]byte(nil), s.canonical...)
}

// LoadedAt returns when the snapshot was constructed.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Rules returns a copy of every effective rule (base plus enabled overlays).
func (s *Snapshot) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// RulesForGate returns a copy of the effective rules attached to one gate.
func (s *Snapshot) RulesForGate(gate string) []Rule {
	return append([]Rule(nil), s.byGate[gate]...)
}

// EnabledRulesForGate returns the enabled effective rules attached to one gate.
func (s *Snapshot) EnabledRulesForGate(gate string) []Rule {
	var out []Rule
	for _, r := range s.byGate[gate] {
		if r.IsEnabled() {
			out = append(out, r)
		}
	}
	return out
}

// Lists returns the allow/control/deny lists for a surface tag. Surfaces
// absent from the document have empty lists.
func (s *Snapshot) Lists(tag surface.Tag) SurfaceLists {
	return s.surfaces[tag]
}

// Intents returns the closed intent taxonomy.
func (s *Snapshot) Intents() []Intent {
	return append([]Intent(nil), s.intents...)
}

// Risk returns the policy-supplied risk model.
func (s *Snapshot) Risk() RiskModel { return s.risk }

// Pillars returns the constitutional pillar flags.
func (s *Snapshot) Pillars() Pillars { return s.pillars }

// OverlayEnabled reports the activation state of a named overlay.
func (s *Snapshot) OverlayEnabled(id string) bool { return s.overlays[id] }

// Rule returns the effective rule with the given ID, if present.
func (s *Snapshot) Rule(id string) (Rule, bool) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Equal reports whether two snapshots carry identical effective rule sets.
func (s *Snapshot) Equal(other *Snapshot) bool {
	return other != nil && s.hash == other.hash
}
