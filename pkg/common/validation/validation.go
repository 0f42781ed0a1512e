// Package validation provides common validation utilities for the ratezone library.
package validation

import (
	"strings"

	rzerrors "github.com/vnykmshr/ratezone/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return rzerrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNotNil validates that an interface value is not nil.
// Returns a ValidationError if the value is nil.
func ValidateNotNil(module, field string, value interface{}) error {
	if value == nil {
		return rzerrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return rzerrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidateExcludes validates that a string contains none of the given characters.
// Returns a ValidationError naming the first offending character.
func ValidateExcludes(module, field, value, chars string) error {
	if i := strings.IndexAny(value, chars); i >= 0 {
		return rzerrors.NewValidationError(module, field, value, "contains "+describeChar(value[i])).
			WithHint("remove separators and whitespace from " + field)
	}
	return nil
}

func describeChar(c byte) string {
	switch c {
	case ' ':
		return "a space"
	case '\t':
		return "a tab"
	case '\n', '\r':
		return "a line break"
	}
	return "'" + string(c) + "'"
}
