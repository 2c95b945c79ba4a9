package policy

import (
	"testing"

	"minos-hq/minos/pkg/surface"
)

func TestRuleMatches(t *testing.T) {
	ctx := MatchContext{
		Surface: surface.UserOutbound,
		Intent:  "external-data-share",
		Sensitivity: map[string]Severity{
			"pii": SeverityHigh,
		},
		Roles: []string{"analyst"},
	}

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{
			name: "surface only",
			rule: Rule{Match: Match{Surface: "U-O"}},
			want: true,
		},
		{
			name: "surface mismatch",
			rule: Rule{Match: Match{Surface: "U-I"}},
			want: false,
		},
		{
			name: "all predicates hold",
			rule: Rule{Match: Match{
				Surface:     "U-O",
				Intent:      "external-data-share",
				Sensitivity: &SensitivityPredicate{Kind: "pii", MinSeverity: SeverityMedium},
				Roles:       []string{"analyst", "admin"},
			}},
			want: true,
		},
		{
			name: "one predicate fails among many",
			rule: Rule{Match: Match{
				Surface: "U-O",
				Intent:  "document-read",
			}},
			want: false,
		},
		{
			name: "sensitivity below threshold",
			rule: Rule{Match: Match{Sensitivity: &SensitivityPredicate{Kind: "pii", MinSeverity: SeverityCritical}}},
			want: false,
		},
		{
			name: "sensitivity at threshold",
			rule: Rule{Match: Match{Sensitivity: &SensitivityPredicate{Kind: "pii", MinSeverity: SeverityHigh}}},
			want: true,
		},
		{
			name: "sensitivity kind not detected",
			rule: Rule{Match: Match{Sensitivity: &SensitivityPredicate{Kind: "phi", MinSeverity: SeverityLow}}},
			want: false,
		},
		{
			name: "role held",
			rule: Rule{Match: Match{Roles: []string{"admin", "analyst"}}},
			want: true,
		},
		{
			name: "role not held",
			rule: Rule{Match: Match{Roles: []string{"admin"}}},
			want: false,
		},
		{
			name: "no predicates never matches",
			rule: Rule{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(ctx); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleMatchesUnclassifiedIntent(t *testing.T) {
	rule := Rule{Match: Match{Intent: "external-data-share"}}
	ctx := MatchContext{Surface: surface.UserInbound, Intent: ""}
	if rule.Matches(ctx) {
		t.Error("intent predicate matched an unclassified request")
	}
}

func TestSpecificity(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want int
	}{
		{"none", Rule{}, 0},
		{"surface", Rule{Match: Match{Surface: "U-I"}}, 1},
		{"surface+intent", Rule{Match: Match{Surface: "U-I", Intent: "x"}}, 2},
		{
			"all four",
			Rule{Match: Match{
				Surface:     "U-I",
				Intent:      "x",
				Sensitivity: &SensitivityPredicate{Kind: "pii", MinSeverity: SeverityLow},
				Roles:       []string{"analyst"},
			}},
			4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Specificity(); got != tt.want {
				t.Errorf("Specificity = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPermissionSatisfied(t *testing.T) {
	rule := Rule{RequireRoles: []string{"compliance-officer"}}
	if rule.PermissionSatisfied([]string{"analyst"}) {
		t.Error("permission satisfied without required role")
	}
	if !rule.PermissionSatisfied([]string{"analyst", "compliance-officer"}) {
		t.Error("permission denied despite required role")
	}
	unconstrained := Rule{}
	if !unconstrained.PermissionSatisfied(nil) {
		t.Error("rule without RequireRoles must impose no requirement")
	}
}

func TestSeverityOrdering(t *testing.T) {
	if !SeverityCritical.AtLeast(SeverityLow) {
		t.Error("critical < low")
	}
	if SeverityLow.AtLeast(SeverityMedium) {
		t.Error("low >= medium")
	}
	if !SeverityMedium.AtLeast(SeverityMedium) {
		t.Error("medium not >= itself")
	}
	if got := MaxSeverity(SeverityLow, SeverityHigh); got != SeverityHigh {
		t.Errorf("MaxSeverity = %q, want high", got)
	}
}
