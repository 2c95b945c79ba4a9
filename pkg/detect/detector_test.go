package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"minos-hq/minos/pkg/policy"
)

// slowDetector blocks until its context is cancelled.
type slowDetector struct{}

func (slowDetector) Name() string { return "slow-external" }

func (slowDetector) Analyze(ctx context.Context, in Input) ([]Finding, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// stubDetector returns fixed findings.
type stubDetector struct {
	name     string
	findings []Finding
	err      error
}

func (d stubDetector) Name() string { return d.name }

func (d stubDetector) Analyze(ctx context.Context, in Input) ([]Finding, error) {
	return d.findings, d.err
}

func TestBoundedTimesOut(t *testing.T) {
	b := NewBounded(slowDetector{}, 20*time.Millisecond)

	start := time.Now()
	_, err := b.Analyze(context.Background(), Input{Content: "x"})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("bounded detector returned no error on timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("bounded detector blocked for %s", elapsed)
	}
}

func TestBoundedPassesThrough(t *testing.T) {
	want := []Finding{{Kind: "pii.email", Severity: policy.SeverityMedium, Detector: "stub"}}
	b := NewBounded(stubDetector{name: "stub", findings: want}, time.Second)

	got, err := b.Analyze(context.Background(), Input{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(got) != 1 || got[0].Kind != "pii.email" {
		t.Errorf("findings = %+v, want %+v", got, want)
	}
	if b.Name() != "stub" {
		t.Errorf("Name = %q, want stub", b.Name())
	}
}

func TestRegistrySkipsNil(t *testing.T) {
	r := NewRegistry(stubDetector{name: "a"}, nil, stubDetector{name: "b"})
	ds := r.Detectors()
	if len(ds) != 2 {
		t.Fatalf("registry holds %d detectors, want 2", len(ds))
	}
	if ds[0].Name() != "a" || ds[1].Name() != "b" {
		t.Errorf("registration order not preserved: %s, %s", ds[0].Name(), ds[1].Name())
	}
}
