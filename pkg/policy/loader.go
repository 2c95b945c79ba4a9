package policy

import (
	"encoding/json"
	"fmt"
	"os"

	"minos-hq/minos/pkg/surface"
)

const defaultRiskThreshold = 100

// Load reads and validates a policy document from a file, returning an
// immutable snapshot of its effective rule set.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(path, nil, err)
	}
	return Parse(data, path)
}

// Parse validates a policy document and folds enabled overlays into the base
// rule set. The source string only labels errors; it does not affect the
// snapshot hash.
func Parse(data []byte, source string) (*Snapshot, error) {
	if source == "" {
		source = "inline"
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewLoadError(source, nil, err)
	}

	v := &validator{doc: &doc}
	effective := v.run()
	if len(v.problems) > 0 {
		return nil, NewLoadError(source, v.problems, nil)
	}

	return newSnapshot(&doc, effective), nil
}

// validator accumulates every problem in the document rather than stopping
// at the first, so policy authors get one complete report.
type validator struct {
	doc      *Document
	problems []string
	ruleIDs  map[string]bool
	intents  map[string]bool
}

func (v *validator) errorf(format string, args ...interface{}) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) run() []Rule {
	doc := v.doc
	v.ruleIDs = make(map[string]bool)
	v.intents = make(map[string]bool)

	if doc.Version == "" {
		v.errorf("document version is required")
	}

	for i, in := range doc.Intents {
		if in.Name == "" {
			v.errorf("intent %d has no name", i)
			continue
		}
		if v.intents[in.Name] {
			v.errorf("duplicate intent %q", in.Name)
		}
		v.intents[in.Name] = true
	}

	if doc.Risk.Threshold < 0 {
		v.errorf("risk threshold must not be negative")
	}
	if doc.Risk.Threshold == 0 {
		doc.Risk.Threshold = defaultRiskThreshold
	}
	for sev := range doc.Risk.SeverityWeights {
		if !ValidSeverity(sev) {
			v.errorf("risk model references unknown severity %q", sev)
		}
	}

	for tag := range doc.Surfaces {
		if !surface.Valid(surface.Tag(tag)) {
			v.errorf("surface section references unknown surface %q", tag)
		}
	}

	var effective []Rule

	for gate, section := range doc.Gates {
		if GateNumber(gate) == 0 {
			v.errorf("gate section references undefined gate %q", gate)
			continue
		}
		for i := range section.Rules {
			r := section.Rules[i]
			if r.Gate == "" {
				r.Gate = gate
			}
			if r.Ontology == "" {
				r.Ontology = OntologyHard
			}
			v.checkRule(&r, gate, false)
			effective = append(effective, r)
		}
	}

	effective = append(effective, v.resolveOverlays()...)
	return effective
}

// checkRule validates one rule. overlay rules are always soft ontology.
func (v *validator) checkRule(r *Rule, section string, overlay bool) {
	where := fmt.Sprintf("rule %q", r.ID)
	if r.ID == "" {
		where = fmt.Sprintf("unnamed rule in %q", section)
		v.errorf("%s has no id", where)
	} else if v.ruleIDs[r.ID] {
		v.errorf("duplicate rule id %q", r.ID)
	}
	v.ruleIDs[r.ID] = true

	if r.Gate == "" {
		v.errorf("%s declares no gate", where)
	} else if GateNumber(r.Gate) == 0 {
		v.errorf("%s references undefined gate %q", where, r.Gate)
	} else if !overlay && r.Gate != section {
		v.errorf("%s declares gate %q but lives in section %q", where, r.Gate, section)
	}

	if r.Specificity() == 0 {
		v.errorf("%s declares no surface, intent, sensitivity, or role predicate", where)
	}

	switch r.Action {
	case ActionAllow, ActionEscalate, ActionDeny, ActionFlag:
	case "":
		v.errorf("%s declares no action", where)
	default:
		v.errorf("%s declares unknown action %q", where, r.Action)
	}

	switch r.Ontology {
	case OntologyHard, OntologySoft:
	default:
		v.errorf("%s declares unknown ontology %q", where, r.Ontology)
	}

	// Soft ontology may only supplement allow/escalate outcomes; a soft
	// deny would let an overlay masquerade as baseline policy.
	if r.Ontology == OntologySoft && r.Action == ActionDeny {
		v.errorf("%s is soft ontology and may not deny", where)
	}

	if r.Pillar != "" {
		switch r.Pillar {
		case PillarDignity, PillarHope, PillarAgency:
		default:
			v.errorf("%s references unknown pillar %q", where, r.Pillar)
		}
		if r.Ontology != OntologyHard {
			v.errorf("%s is pillar-anchored and must be hard ontology", where)
		}
		if v.doc.Pillars.Enforced(r.Pillar) && !r.IsEnabled() {
			v.errorf("%s is anchored to enforced pillar %q and cannot be disabled", where, r.Pillar)
		}
	}

	if r.Weight < 0 || r.Weight > 1000 {
		v.errorf("%s weight %d outside [0,1000]", where, r.Weight)
	}

	if r.Match.Surface != "" && !surface.Valid(surface.Tag(r.Match.Surface)) {
		v.errorf("%s matches unknown surface %q", where, r.Match.Surface)
	}
	if r.Match.Intent != "" && !v.intents[r.Match.Intent] {
		v.errorf("%s matches intent %q absent from the taxonomy", where, r.Match.Intent)
	}
	if sp := r.Match.Sensitivity; sp != nil {
		switch sp.Kind {
		case "pii", "phi", "regulated":
		default:
			v.errorf("%s matches unknown sensitivity kind %q", where, sp.Kind)
		}
		if sp.MinSeverity != "" && !ValidSeverity(sp.MinSeverity) {
			v.errorf("%s declares unknown min severity %q", where, sp.MinSeverity)
		}
	}
}

// resolveOverlays validates overlay dependencies, rejects cycles, and
// returns the rules of every activatable overlay marked soft.
func (v *validator) resolveOverlays() []Rule {
	byID := make(map[string]*Overlay, len(v.doc.Overlays))
	for i := range v.doc.Overlays {
		o := &v.doc.Overlays[i]
		if o.ID == "" {
			v.errorf("overlay %d has no id", i)
			continue
		}
		if byID[o.ID] != nil {
			v.errorf("duplicate overlay id %q", o.ID)
			continue
		}
		byID[o.ID] = o
	}

	// Cycle detection over the requires graph, enabled or not; a cyclic
	// dependency is a document defect either way.
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			v.errorf("cyclic overlay dependency involving %q", id)
			return false
		case done:
			return true
		}
		state[id] = visiting
		o := byID[id]
		ok := true
		for _, dep := range o.Requires {
			if byID[dep] == nil {
				v.errorf("overlay %q requires undefined overlay %q", id, dep)
				ok = false
				continue
			}
			if !visit(dep) {
				ok = false
			}
		}
		state[id] = done
		return ok
	}

	// Apply overlays in declaration order so the effective rule order is
	// deterministic.
	var rules []Rule
	for i := range v.doc.Overlays {
		o := &v.doc.Overlays[i]
		if o.ID == "" || byID[o.ID] != o {
			continue
		}
		if !visit(o.ID) || !o.Enabled {
			continue
		}
		active := true
		for _, dep := range o.Requires {
			if d := byID[dep]; d == nil || !d.Enabled {
				active = false
				break
			}
		}
		if !active {
			continue
		}
		for i := range o.Rules {
			r := o.Rules[i]
			r.Ontology = OntologySoft
			v.checkRule(&r, o.ID, true)
			rules = append(rules, r)
		}
	}
	return rules
}
