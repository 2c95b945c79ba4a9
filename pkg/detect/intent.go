package detect

import (
	"strings"

	"minos-hq/minos/pkg/policy"
)

// Classification is the intent classifier output. Intent is empty when the
// request could not be classified into the policy taxonomy.
type Classification struct {
	Intent     string
	Confidence float64
}

// IntentClassifier assigns an intent category from the closed taxonomy
// carried by the active policy snapshot. Action-name mapping is
// authoritative; keyword matching over the content is the fallback.
type IntentClassifier struct{}

// NewIntentClassifier returns a keyword/action based classifier.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{}
}

// Classify maps the input to an intent from the taxonomy. An action listed
// under exactly one intent classifies with full confidence. Otherwise the
// intent with the most keyword hits wins with confidence proportional to
// the hit count; no hits means unclassified.
func (c *IntentClassifier) Classify(in Input, taxonomy []policy.Intent) Classification {
	for _, intent := range taxonomy {
		for _, action := range intent.Actions {
			if action == in.Action {
				return Classification{Intent: intent.Name, Confidence: 1.0}
			}
		}
	}

	text := strings.ToLower(in.Text())
	best := ""
	bestHits := 0
	for _, intent := range taxonomy {
		hits := 0
		for _, kw := range intent.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > bestHits {
			best = intent.Name
			bestHits = hits
		}
	}

	if bestHits == 0 {
		return Classification{}
	}

	confidence := 0.4 + 0.15*float64(bestHits)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return Classification{Intent: best, Confidence: confidence}
}
