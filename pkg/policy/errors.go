package policy

import (
	"fmt"
	"strings"
)

// LoadError reports a malformed or invalid policy document. A LoadError is
// fatal to snapshot activation; the previously active snapshot stays in
// force.
type LoadError struct {
	// Source identifies the document origin (file path or "inline").
	Source string

	// Problems lists every validation failure found, not just the first.
	Problems []string

	// Cause is the underlying parse error, if any.
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if len(e.Problems) > 0 {
		return fmt.Sprintf("policy load failed [source=%s]: %s", e.Source, strings.Join(e.Problems, "; "))
	}
	return fmt.Sprintf("policy load failed [source=%s]: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NewLoadError creates a LoadError for the given source.
func NewLoadError(source string, problems []string, cause error) *LoadError {
	return &LoadError{
		Source:   source,
		Problems: problems,
		Cause:    cause,
	}
}
