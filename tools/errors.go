package tools

import (
	"errors"
	"fmt"
)

// Sentinel errors for tools. Use errors.Is to check.
var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrDuplicateToolName = errors.New("duplicate tool name")
	ErrValidation        = errors.New("validation failed")
	ErrTimeout           = errors.New("tool execution timeout")
	ErrShutdown          = errors.New("registry is shutting down")
	ErrAnonymousFunc     = errors.New("anonymous function needs an explicit tool name")
)

// ValidationError reports arguments that do not match a tool's parameters.
// Reason is safe to send back to the model for self-correction.
type ValidationError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Tool != "" && e.Param != "":
		return fmt.Sprintf("tools: invalid arguments for %q: %s: %s", e.Tool, e.Param, e.Reason)
	case e.Tool != "":
		return fmt.Sprintf("tools: invalid arguments for %q: %s", e.Tool, e.Reason)
	case e.Param != "":
		return fmt.Sprintf("tools: invalid arguments: %s: %s", e.Param, e.Reason)
	}
	return "tools: invalid arguments: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError is returned when no tool is registered under Name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tools: tool %q not found", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrToolNotFound }

// DuplicateToolNameError is returned by Register when Name is taken and replacement was not requested.
type DuplicateToolNameError struct {
	Name string
}

func (e *DuplicateToolNameError) Error() string {
	return fmt.Sprintf("tools: tool %q is already registered", e.Name)
}

func (e *DuplicateToolNameError) Unwrap() error { return ErrDuplicateToolName }

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// panicError wraps a recovered panic value; used by Registry and the WithRecovery middleware.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
