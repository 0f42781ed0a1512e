package validation

import (
	"errors"
	"strings"
	"testing"

	rzerrors "github.com/vnykmshr/ratezone/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"positive value 1", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
		{"large negative", -1000000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("zone", "burst", tt.value)
			checkResult(t, err, tt.wantError)
		})
	}
}

func TestValidateNotNil(t *testing.T) {
	tests := []struct {
		name      string
		value     interface{}
		wantError bool
	}{
		{"non-nil int", 123, false},
		{"non-nil pointer", new(int), false},
		{"nil value", nil, true},
		{"typed nil pointer", (*int)(nil), false}, // typed nil is not nil interface
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNotNil("service", "zone", tt.value)
			checkResult(t, err, tt.wantError)
		})
	}
}

func TestValidateNotEmpty(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{"non-empty string", "api", false},
		{"whitespace", " ", false},
		{"empty string", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNotEmpty("zone", "name", tt.value)
			checkResult(t, err, tt.wantError)
		})
	}
}

func TestValidateExcludes(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
		reason    string
	}{
		{"plain name", "api", false, ""},
		{"colon", "api:v1", true, "':'"},
		{"space", "my zone", true, "a space"},
		{"tab", "my\tzone", true, "a tab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExcludes("zone", "name", tt.value, ": \t\r\n")
			checkResult(t, err, tt.wantError)
			if err != nil && !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error %q should mention %s", err, tt.reason)
			}
		})
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidatePositive("zone", "burst", -5)
	if err == nil {
		t.Fatal("expected error")
	}

	var verr *rzerrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Module != "zone" || verr.Field != "burst" || verr.Value != -5 {
		t.Errorf("unexpected details: %+v", verr)
	}
	if verr.Hint == "" {
		t.Error("expected a hint")
	}
	if !errors.Is(err, rzerrors.ErrInvalidConfiguration) {
		t.Error("validation errors should match ErrInvalidConfiguration")
	}
}

func checkResult(t *testing.T, err error, wantError bool) {
	t.Helper()
	if wantError {
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !rzerrors.IsValidationError(err) {
			t.Errorf("expected ValidationError, got %T", err)
		}
		return
	}
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
