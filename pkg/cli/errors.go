package cli

import (
	"errors"
	"fmt"
)

// Exit codes reported by the binary. Config defects exit 2 so wrapper
// scripts can tell a bad deployment from a runtime failure.
const (
	ExitFailure = 1
	ExitConfig  = 2
)

// ConfigError reports a configuration defect that prevents a command from
// running. Field names the offending config key when known.
type ConfigError struct {
	Field   string
	Message string
}

// NewConfigError creates a ConfigError for field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

func (e *ConfigError) ExitCode() int { return ExitConfig }

// CommandError wraps a failure from a command run with the command name for
// the top-level error report.
type CommandError struct {
	Command string
	Err     error
}

// NewCommandError wraps err with the failing command's name.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

func (e *CommandError) ExitCode() int { return ExitFailure }

// ExitCode returns the exit code carried by err, or ExitFailure when err
// carries none.
func ExitCode(err error) int {
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return ExitFailure
}
