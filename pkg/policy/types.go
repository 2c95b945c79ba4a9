package policy

// Gate names, in pipeline order. Policy rules reference gates by these names;
// the loader rejects any other value.
const (
	GateInputValidation      = "input-validation"
	GateIntentClassification = "intent-classification"
	GateDataClassification   = "data-classification"
	GatePolicyLookup         = "policy-lookup"
	GatePermissionCheck      = "permission-check"
	GateActionApproval       = "action-approval"
	GateEvidenceCapture      = "evidence-capture"
	GateAuditExport          = "audit-export"
)

// GateNames returns the eight gate names in evaluation order.
func GateNames() []string {
	return []string{
		GateInputValidation,
		GateIntentClassification,
		GateDataClassification,
		GatePolicyLookup,
		GatePermissionCheck,
		GateActionApproval,
		GateEvidenceCapture,
		GateAuditExport,
	}
}

// GateNumber returns the 1-based position of a gate name, or 0 if unknown.
func GateNumber(name string) int {
	for i, n := range GateNames() {
		if n == name {
			return i + 1
		}
	}
	return 0
}

// Ontology distinguishes the non-overridable baseline from organization
// overlays.
type Ontology string

const (
	// OntologyHard marks baseline rules. A hard deny can never be weakened
	// by any soft rule.
	OntologyHard Ontology = "hard"

	// OntologySoft marks overlay rules. Soft rules may only add allow or
	// escalate nuance.
	OntologySoft Ontology = "soft"
)

// Action is the outcome a rule contributes when it matches.
type Action string

const (
	// ActionAllow explicitly permits the matched request.
	ActionAllow Action = "allow"

	// ActionEscalate routes the matched request to human review.
	ActionEscalate Action = "escalate"

	// ActionDeny blocks the matched request. Only valid on hard rules.
	ActionDeny Action = "deny"

	// ActionFlag records the match and contributes its weight to the risk
	// score without forcing an outcome.
	ActionFlag Action = "flag"
)

// Severity grades a detected signal or a sensitivity threshold.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// ValidSeverity reports whether s is a defined severity level.
func ValidSeverity(s Severity) bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is at or above min in the severity ordering.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// MaxSeverity returns the higher of a and b.
func MaxSeverity(a, b Severity) Severity {
	if severityRank[a] >= severityRank[b] {
		return a
	}
	return b
}

// Pillar names the constitutional pillars a hard rule may be anchored to.
const (
	PillarDignity = "dignity"
	PillarHope    = "hope"
	PillarAgency  = "agency"
)

// SensitivityPredicate matches when a sensitivity classification of Kind was
// detected at or above MinSeverity.
type SensitivityPredicate struct {
	// Kind is the sensitivity category ("pii", "phi", "regulated").
	Kind string `json:"kind"`

	// MinSeverity is the inclusive severity floor.
	MinSeverity Severity `json:"min_severity"`
}

// Match is the predicate set of a rule. A rule applies only when ALL declared
// predicates hold; absent predicates are unconstrained.
type Match struct {
	// Surface restricts the rule to one trust surface tag (e.g. "U-O").
	Surface string `json:"surface,omitempty"`

	// Intent restricts the rule to one classified intent category.
	Intent string `json:"intent,omitempty"`

	// Sensitivity restricts the rule to requests carrying a sensitivity
	// classification at or above a threshold.
	Sensitivity *SensitivityPredicate `json:"sensitivity,omitempty"`

	// Roles restricts the rule to actors holding at least one listed role.
	Roles []string `json:"roles,omitempty"`
}

// Rule is one policy rule attached to a gate.
type Rule struct {
	// ID uniquely identifies the rule within the document.
	ID string `json:"id"`

	// Gate is the gate this rule belongs to (one of GateNames).
	Gate string `json:"gate"`

	// Description is a human-readable summary for audit output.
	Description string `json:"description,omitempty"`

	// Ontology is hard or soft. Base-document rules default to hard;
	// overlay rules are always soft.
	Ontology Ontology `json:"ontology,omitempty"`

	// Pillar optionally anchors a hard rule to a constitutional pillar.
	Pillar string `json:"pillar,omitempty"`

	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled,omitempty"`

	// Match holds the rule's predicates.
	Match Match `json:"match"`

	// Action is the contribution of a match.
	Action Action `json:"action"`

	// RequireRoles lists roles the actor must hold for the matched action
	// to pass the permission gate. Evaluated at gate 5, unlike Match.Roles
	// which scopes rule applicability.
	RequireRoles []string `json:"require_roles,omitempty"`

	// Weight is the rule's contribution to the aggregate risk score.
	Weight int `json:"weight,omitempty"`
}

// IsEnabled reports the effective enabled state (default true).
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// SurfaceLists are the per-surface action lists. Entries name actions or
// intents. A deny entry has hard-ontology precedence; a control entry forces
// human review.
type SurfaceLists struct {
	Allow   []string `json:"allow,omitempty"`
	Control []string `json:"control,omitempty"`
	Deny    []string `json:"deny,omitempty"`
}

// Overlay is a soft-ontology rule set contributed by organizational
// documents. Overlays activate only when Enabled and all Requires overlays
// resolve without cycles.
type Overlay struct {
	ID       string   `json:"id"`
	Enabled  bool     `json:"enabled"`
	Requires []string `json:"requires,omitempty"`
	Rules    []Rule   `json:"rules,omitempty"`
}

// Pillars holds the constitutional pillar enforcement flags. An enforced
// pillar locks its anchored hard rules: they cannot be disabled.
type Pillars struct {
	Dignity bool `json:"dignity"`
	Hope    bool `json:"hope"`
	Agency  bool `json:"agency"`
}

// Enforced reports whether the named pillar is enforced.
func (p Pillars) Enforced(name string) bool {
	switch name {
	case PillarDignity:
		return p.Dignity
	case PillarHope:
		return p.Hope
	case PillarAgency:
		return p.Agency
	}
	return false
}

// RiskModel is the policy-supplied weighting for verdict resolution. The
// aggregate risk score is the sum of matched rule weights plus the severity
// weight of every recorded signal. Severity weights default to zero, so a
// document that omits them scores on rule weights alone.
type RiskModel struct {
	// Threshold is the score at or above which an otherwise allowed
	// request escalates.
	Threshold int `json:"threshold"`

	// SeverityWeights maps signal severities to score contributions.
	SeverityWeights map[Severity]int `json:"severity_weights,omitempty"`
}

// SignalWeight returns the score contribution for a signal severity.
func (m RiskModel) SignalWeight(s Severity) int {
	return m.SeverityWeights[s]
}

// Intent is one entry of the closed intent taxonomy. Classification maps a
// request's action name first, then falls back to keyword matches.
type Intent struct {
	Name     string   `json:"name"`
	Actions  []string `json:"actions,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// GateSection is the per-gate portion of a policy document.
type GateSection struct {
	Rules []Rule `json:"rules,omitempty"`
}

// Document is the raw, parsed form of a policy file before validation and
// normalization into a Snapshot.
type Document struct {
	// Version is the author-assigned document version label.
	Version string `json:"version"`

	// Intents is the closed intent taxonomy.
	Intents []Intent `json:"intents,omitempty"`

	// Gates maps gate names to their rule sections.
	Gates map[string]GateSection `json:"gates,omitempty"`

	// Surfaces maps surface tags to their allow/control/deny lists.
	Surfaces map[string]SurfaceLists `json:"surfaces,omitempty"`

	// Overlays carries the soft-ontology rule sets.
	Overlays []Overlay `json:"overlays,omitempty"`

	// Pillars holds the constitutional pillar flags.
	Pillars Pillars `json:"pillars"`

	// Risk is the verdict risk model.
	Risk RiskModel `json:"risk"`
}
