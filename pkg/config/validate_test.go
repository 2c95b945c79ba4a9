package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	return DefaultConfig()
}

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error is %T, want ValidationError", err)
	}
	return verr.Errors
}

func hasField(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidateRejectsBadPipelineMode(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.Mode = "dry-run"

	errs := fieldErrors(t, Validate(cfg))
	if !hasField(errs, "pipeline.mode") {
		t.Errorf("missing pipeline.mode error, got %v", errs)
	}
}

func TestValidateRejectsConfidenceFloorOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.LowConfidenceFloor = 1.5

	errs := fieldErrors(t, Validate(cfg))
	if !hasField(errs, "pipeline.low_confidence_floor") {
		t.Errorf("missing low_confidence_floor error, got %v", errs)
	}
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg := validConfig()
	cfg.Approval.Backend = "postgres"
	cfg.Evidence.Backend = "s3"

	errs := fieldErrors(t, Validate(cfg))
	if !hasField(errs, "approval.backend") {
		t.Errorf("missing approval.backend error, got %v", errs)
	}
	if !hasField(errs, "evidence.backend") {
		t.Errorf("missing evidence.backend error, got %v", errs)
	}
}

func TestValidateRejectsBadCronSchedule(t *testing.T) {
	cfg := validConfig()
	cfg.Evidence.Retention.PruneSchedule = "every day at three"

	errs := fieldErrors(t, Validate(cfg))
	if !hasField(errs, "evidence.retention.prune_schedule") {
		t.Errorf("missing prune_schedule error, got %v", errs)
	}
}

func TestValidateRejectsBadLogging(t *testing.T) {
	cfg := validConfig()
	cfg.Telemetry.Logging.Level = "verbose"
	cfg.Telemetry.Logging.Format = "xml"

	errs := fieldErrors(t, Validate(cfg))
	if !hasField(errs, "telemetry.logging.level") || !hasField(errs, "telemetry.logging.format") {
		t.Errorf("missing logging errors, got %v", errs)
	}
}

func TestValidationErrorMessageListsAll(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ListenAddress = ""
	cfg.Pipeline.Mode = "bogus"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "server.listen_address") || !strings.Contains(msg, "pipeline.mode") {
		t.Errorf("message does not list all errors: %q", msg)
	}
	if !strings.Contains(msg, "2 errors") {
		t.Errorf("message does not report error count: %q", msg)
	}
}
