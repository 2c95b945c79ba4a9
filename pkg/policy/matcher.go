package policy

import (
	"minos-hq/minos/pkg/surface"
)

// MatchContext carries the request facts a rule's predicates are evaluated
// against: the classified trust surface, the classified intent, the maximum
// detected severity per sensitivity kind, and the actor's roles.
type MatchContext struct {
	// Surface is the classified trust surface of the request.
	Surface surface.Tag

	// Intent is the classified intent category ("" when unclassified).
	Intent string

	// Sensitivity maps sensitivity kinds ("pii", "phi", "regulated") to the
	// maximum severity detected for that kind.
	Sensitivity map[string]Severity

	// Roles are the roles held by the requesting actor.
	Roles []string
}

// Matches reports whether every declared predicate of the rule holds in the
// given context. A rule with no declared predicates never matches; the
// loader rejects such rules up front.
func (r *Rule) Matches(mc MatchContext) bool {
	declared := false

	if r.Match.Surface != "" {
		declared = true
		if surface.Tag(r.Match.Surface) != mc.Surface {
			return false
		}
	}

	if r.Match.Intent != "" {
		declared = true
		if r.Match.Intent != mc.Intent {
			return false
		}
	}

	if r.Match.Sensitivity != nil {
		declared = true
		got, ok := mc.Sensitivity[r.Match.Sensitivity.Kind]
		if !ok || !got.AtLeast(r.Match.Sensitivity.MinSeverity) {
			return false
		}
	}

	if len(r.Match.Roles) > 0 {
		declared = true
		if !anyRole(mc.Roles, r.Match.Roles) {
			return false
		}
	}

	return declared
}

// Specificity counts the rule's declared predicates. More predicates means a
// more specific rule; verdict resolution prefers the most specific rule when
// matched rules conflict.
func (r *Rule) Specificity() int {
	n := 0
	if r.Match.Surface != "" {
		n++
	}
	if r.Match.Intent != "" {
		n++
	}
	if r.Match.Sensitivity != nil {
		n++
	}
	if len(r.Match.Roles) > 0 {
		n++
	}
	return n
}

// PermissionSatisfied reports whether the actor's roles satisfy the rule's
// RequireRoles constraint. Rules without RequireRoles impose no permission
// requirement.
func (r *Rule) PermissionSatisfied(roles []string) bool {
	if len(r.RequireRoles) == 0 {
		return true
	}
	return anyRole(roles, r.RequireRoles)
}

func anyRole(held, wanted []string) bool {
	for _, w := range wanted {
		for _, h := range held {
			if h == w {
				return true
			}
		}
	}
	return false
}
