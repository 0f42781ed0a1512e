// Package validation provides common validation utilities for configuration
// parameters across the ratezone library.
//
// Every validator returns a *errors.ValidationError so callers can report the
// offending field and value, and match the failure with errors.Is against
// errors.ErrInvalidConfiguration.
package validation
