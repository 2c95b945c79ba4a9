package detect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"minos-hq/minos/pkg/policy"
)

// Input is the detector view of a request: the action name, the free-text
// content, and the structured payload. Detectors never see verdicts or
// policy state.
type Input struct {
	Action  string
	Content string
	Payload map[string]interface{}
}

// Text concatenates the scannable text of the input: content plus every
// string payload value.
func (in Input) Text() string {
	if len(in.Payload) == 0 {
		return in.Content
	}
	var b strings.Builder
	b.WriteString(in.Content)
	for _, v := range in.Payload {
		if s, ok := v.(string); ok {
			b.WriteByte('\n')
			b.WriteString(s)
		}
	}
	return b.String()
}

// Finding is one typed detector result. The pipeline converts findings into
// trace signals, attributing them to the emitting gate.
type Finding struct {
	// Kind is a dotted identifier, category first ("pii.email",
	// "injection.instruction-override", "schema.missing-field").
	Kind string

	// Severity grades the finding.
	Severity policy.Severity

	// Confidence is the detector's confidence in [0,1].
	Confidence float64

	// Detector names the producing detector.
	Detector string

	// Evidence carries finding details safe to persist (counts, positions,
	// pattern names, never the raw matched secret).
	Evidence map[string]interface{}
}

// Detector is the capability every analyzer implements.
type Detector interface {
	// Name identifies the detector in signals and configuration.
	Name() string

	// Analyze scans the input and returns zero or more findings. An error
	// marks the detector unavailable for this request; the pipeline
	// records that as a low-confidence neutral signal and continues.
	Analyze(ctx context.Context, in Input) ([]Finding, error)
}

// Bounded wraps a detector with a timeout so a slow implementation (e.g. an
// external scanning service) reports failure instead of stalling the
// pipeline.
type Bounded struct {
	inner   Detector
	timeout time.Duration
}

// NewBounded wraps d with the given timeout. A non-positive timeout defaults
// to one second.
func NewBounded(d Detector, timeout time.Duration) *Bounded {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Bounded{inner: d, timeout: timeout}
}

// Name returns the wrapped detector's name.
func (b *Bounded) Name() string { return b.inner.Name() }

// Analyze runs the wrapped detector under a deadline.
func (b *Bounded) Analyze(ctx context.Context, in Input) ([]Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		findings []Finding
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		findings, err := b.inner.Analyze(ctx, in)
		ch <- result{findings, err}
	}()

	select {
	case r := <-ch:
		return r.findings, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("detector %s timed out after %s: %w", b.inner.Name(), b.timeout, ctx.Err())
	}
}

// Registry holds the configured detectors for one pipeline stage.
type Registry struct {
	detectors []Detector
}

// NewRegistry builds a registry from the given detectors, skipping nils.
func NewRegistry(detectors ...Detector) *Registry {
	r := &Registry{}
	for _, d := range detectors {
		if d != nil {
			r.detectors = append(r.detectors, d)
		}
	}
	return r
}

// Detectors returns the registered detectors in registration order.
func (r *Registry) Detectors() []Detector {
	return append([]Detector(nil), r.detectors...)
}
