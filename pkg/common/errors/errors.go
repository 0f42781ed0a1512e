// Package errors defines the error values and structured error types shared
// by the ratezone packages.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates that an operation was attempted on a closed service or bucket.
	ErrClosed = errors.New("resource is closed")

	// ErrInvalidConfiguration indicates an invalid zone, rate or directive.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrZoneNotFound indicates a throttle call against a zone that was never registered.
	// It is a setup bug, never a transient condition.
	ErrZoneNotFound = errors.New("zone not found")
)

// ValidationError describes a configuration value that was rejected.
// It always unwraps to ErrInvalidConfiguration.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps the cause of a failed operation with the module and
// operation that observed it.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches free-form context and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsNotFound reports whether err is or wraps ErrZoneNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrZoneNotFound)
}

// IsConfiguration reports whether err describes a configuration problem rather
// than a runtime one: a rejected value or a reference to an unknown zone.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) || errors.Is(err, ErrZoneNotFound)
}
