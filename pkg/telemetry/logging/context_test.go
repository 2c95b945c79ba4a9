package logging

import (
	"context"
	"testing"
)

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	if fields := ContextFields(ctx); len(fields) != 0 {
		t.Errorf("empty context yields fields: %v", fields)
	}

	ctx = WithTraceID(ctx, "tr-1")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithActorID(ctx, "agent_7")

	if got := GetTraceID(ctx); got != "tr-1" {
		t.Errorf("trace id = %q", got)
	}
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("request id = %q", got)
	}
	if got := GetActorID(ctx); got != "agent_7" {
		t.Errorf("actor id = %q", got)
	}

	fields := ContextFields(ctx)
	if len(fields) != 6 {
		t.Fatalf("got %d field elements, want 6", len(fields))
	}
}
