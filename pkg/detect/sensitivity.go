package detect

import (
	"context"
	"regexp"
	"sort"

	"minos-hq/minos/pkg/policy"
)

// sensitivityPattern is one compiled detection pattern with its finding
// metadata.
type sensitivityPattern struct {
	kind     string
	severity policy.Severity
	re       *regexp.Regexp
}

// SensitivityConfig configures the sensitivity detector.
type SensitivityConfig struct {
	// Custom adds organization-specific patterns. Keys are finding kinds
	// ("regulated.ticker-symbol"), values are regex sources.
	Custom map[string]string

	// CustomSeverity grades custom patterns; defaults to medium.
	CustomSeverity policy.Severity
}

// SensitivityDetector classifies PII, PHI, and regulated-data content with
// regex patterns. It never denies; it only produces graded findings for the
// data-classification gate.
type SensitivityDetector struct {
	patterns []sensitivityPattern
}

// NewSensitivityDetector compiles the built-in pattern set plus any custom
// patterns. Invalid custom patterns are skipped.
func NewSensitivityDetector(cfg SensitivityConfig) *SensitivityDetector {
	d := &SensitivityDetector{
		patterns: []sensitivityPattern{
			{"pii.email", policy.SeverityMedium,
				regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
			{"pii.phone", policy.SeverityMedium,
				regexp.MustCompile(`\b(\+?1?[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
			{"pii.ssn", policy.SeverityHigh,
				regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
			{"pii.credit-card", policy.SeverityHigh,
				regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)},
			{"phi.mrn", policy.SeverityHigh,
				regexp.MustCompile(`\bMRN[:\s-]{0,2}\d{6,10}\b`)},
			{"phi.icd-code", policy.SeverityMedium,
				regexp.MustCompile(`\b[A-TV-Z]\d{2}\.\d{1,4}\b`)},
			{"regulated.iban", policy.SeverityHigh,
				regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)},
			{"regulated.account-number", policy.SeverityMedium,
				regexp.MustCompile(`\b(account|acct)[\s#:-]*\d{6,}\b`)},
		},
	}

	sev := cfg.CustomSeverity
	if sev == "" {
		sev = policy.SeverityMedium
	}
	// Sorted so pattern order, and with it recorded signal order, is stable
	// across process runs.
	kinds := make([]string, 0, len(cfg.Custom))
	for kind := range cfg.Custom {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		re, err := regexp.Compile(cfg.Custom[kind])
		if err != nil {
			continue
		}
		d.patterns = append(d.patterns, sensitivityPattern{kind, sev, re})
	}

	return d
}

// Name implements Detector.
func (d *SensitivityDetector) Name() string { return "sensitivity" }

// Analyze scans the input text and returns one finding per matched pattern
// kind, with the match count as evidence. Raw matched values are never
// included.
func (d *SensitivityDetector) Analyze(ctx context.Context, in Input) ([]Finding, error) {
	text := in.Text()
	var findings []Finding
	for _, p := range d.patterns {
		matches := p.re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		findings = append(findings, Finding{
			Kind:       p.kind,
			Severity:   p.severity,
			Confidence: 1.0,
			Detector:   d.Name(),
			Evidence: map[string]interface{}{
				"count":        len(matches),
				"first_offset": matches[0][0],
			},
		})
	}
	return findings, ctx.Err()
}
