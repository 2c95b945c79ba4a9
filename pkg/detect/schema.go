package detect

import (
	"context"
	"fmt"
	"regexp"

	"minos-hq/minos/pkg/policy"
)

// defaultInjectionPatterns are phrase fragments characteristic of prompt
// injection attempts. Configured patterns are added on top.
var defaultInjectionPatterns = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"disregard your instructions",
	"you are now",
	"pretend you are",
	"system prompt",
	"reveal your instructions",
	"jailbreak",
	"do anything now",
}

// SchemaConfig configures the schema validator.
type SchemaConfig struct {
	// RequiredFields are payload keys that must be present and non-empty.
	RequiredFields []string

	// MaxContentLength rejects content longer than this many bytes.
	// Zero disables the check.
	MaxContentLength int

	// InjectionPatterns are additional case-insensitive phrases flagged as
	// injection attempts.
	InjectionPatterns []string
}

// SchemaValidator validates request structure and scans for prompt
// injection. It backs the input-validation gate.
type SchemaValidator struct {
	config    SchemaConfig
	patterns  []*regexp.Regexp
	patternID []string
}

// NewSchemaValidator compiles the injection pattern set and returns the
// validator.
func NewSchemaValidator(cfg SchemaConfig) *SchemaValidator {
	v := &SchemaValidator{config: cfg}
	all := append(append([]string(nil), defaultInjectionPatterns...), cfg.InjectionPatterns...)
	for _, p := range all {
		v.patterns = append(v.patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(p)))
		v.patternID = append(v.patternID, p)
	}
	return v
}

// Name implements Detector.
func (v *SchemaValidator) Name() string { return "schema" }

// Analyze checks required structure and scans for injection phrases.
// Structural failures yield "schema.*" findings; injection matches yield
// "injection.pattern" findings. The gate decides that any of them fail
// validation.
func (v *SchemaValidator) Analyze(ctx context.Context, in Input) ([]Finding, error) {
	var findings []Finding

	if in.Action == "" {
		findings = append(findings, Finding{
			Kind:       "schema.missing-field",
			Severity:   policy.SeverityHigh,
			Confidence: 1.0,
			Detector:   v.Name(),
			Evidence:   map[string]interface{}{"field": "action"},
		})
	}

	for _, field := range v.config.RequiredFields {
		val, ok := in.Payload[field]
		if !ok || val == "" || val == nil {
			findings = append(findings, Finding{
				Kind:       "schema.missing-field",
				Severity:   policy.SeverityHigh,
				Confidence: 1.0,
				Detector:   v.Name(),
				Evidence:   map[string]interface{}{"field": field},
			})
		}
	}

	if v.config.MaxContentLength > 0 && len(in.Content) > v.config.MaxContentLength {
		findings = append(findings, Finding{
			Kind:       "schema.content-too-large",
			Severity:   policy.SeverityMedium,
			Confidence: 1.0,
			Detector:   v.Name(),
			Evidence: map[string]interface{}{
				"length": len(in.Content),
				"limit":  v.config.MaxContentLength,
			},
		})
	}

	text := in.Text()
	for i, re := range v.patterns {
		if loc := re.FindStringIndex(text); loc != nil {
			findings = append(findings, Finding{
				Kind:       "injection.pattern",
				Severity:   policy.SeverityHigh,
				Confidence: 0.9,
				Detector:   v.Name(),
				Evidence: map[string]interface{}{
					"pattern": v.patternID[i],
					"offset":  loc[0],
				},
			})
		}
	}

	return findings, ctx.Err()
}

// Failed reports whether the finding set contains a validation failure, and
// the reason for the first one.
func Failed(findings []Finding) (bool, string) {
	for _, f := range findings {
		switch f.Category() {
		case "schema", "injection":
			return true, fmt.Sprintf("%s (%s)", f.Kind, f.Detector)
		}
	}
	return false, ""
}

// Category returns the first segment of the finding kind.
func (f Finding) Category() string {
	for i := 0; i < len(f.Kind); i++ {
		if f.Kind[i] == '.' {
			return f.Kind[:i]
		}
	}
	return f.Kind
}
