package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type stringered struct{}

func (stringered) String() string { return "verdict: ALLOW" }

func TestTextFormatter(t *testing.T) {
	f := NewFormatter(FormatText)

	var buf bytes.Buffer
	if err := f.FormatTo(&buf, "3 rules loaded"); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	if got := buf.String(); got != "3 rules loaded\n" {
		t.Errorf("FormatTo wrote %q", got)
	}
}

func TestTextFormatterUsesStringer(t *testing.T) {
	f := NewFormatter(FormatText)

	var buf bytes.Buffer
	if err := f.FormatTo(&buf, stringered{}); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	if got := buf.String(); got != "verdict: ALLOW\n" {
		t.Errorf("FormatTo wrote %q", got)
	}
}

func TestJSONFormatter(t *testing.T) {
	f := NewFormatter(FormatJSON)

	var buf bytes.Buffer
	err := f.FormatTo(&buf, map[string]any{"decision": "DENY", "risk": 120})
	if err != nil {
		t.Fatalf("FormatTo: %v", err)
	}

	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output should be indented")
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["decision"] != "DENY" {
		t.Errorf("decision = %v", decoded["decision"])
	}
}

func TestNewFormatterUnknownFallsBackToText(t *testing.T) {
	f := NewFormatter("yaml")

	var buf bytes.Buffer
	if err := f.FormatTo(&buf, 42); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	if got := buf.String(); got != "42\n" {
		t.Errorf("fallback formatter wrote %q", got)
	}
}
