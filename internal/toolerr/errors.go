// Package toolerr defines the failures shared by tool servers and clients.
package toolerr

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrUnknownPrompt   = errors.New("unknown prompt")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ArgumentError reports a rejected argument of a tool or prompt.
// Err is ErrMissingArgument or ErrInvalidArgument.
type ArgumentError struct {
	Target string // tool or prompt name
	Field  string
	Reason string
	Err    error
}

func (e *ArgumentError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: argument '%s' %s", e.Target, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s '%s'", e.Target, e.Err, e.Field)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// Missing builds an ArgumentError for an absent required field.
func Missing(target, field string) error {
	return &ArgumentError{Target: target, Field: field, Err: ErrMissingArgument}
}

// Invalid builds an ArgumentError for a present but unusable value.
func Invalid(target, field, reason string) error {
	return &ArgumentError{Target: target, Field: field, Reason: reason, Err: ErrInvalidArgument}
}

// UnknownTool wraps ErrUnknownTool with the offending name.
func UnknownTool(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

// UnknownPrompt wraps ErrUnknownPrompt with the offending name.
func UnknownPrompt(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
}

// ToolError is a failure reported by the server inside a tool result.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}
