// Package validation provides call submission and configuration validation
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poltergeist/callcenter/pkg/types"
)

// ValidationLevel represents error severity
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
)

// ValidationError describes one rejected field
type ValidationError struct {
	Subject string
	Field   string
	Message string
	Level   ValidationLevel
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Level, e.Subject, e.Field, e.Message)
}

// Unwrap lets errors.Is match error-level problems against types.ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	if e.Level == ValidationLevelError {
		return types.ErrInvalidInput
	}
	return nil
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// AddError adds an error to the validation result
func (r *ValidationResult) AddError(subject, field, message string, level ValidationLevel) {
	r.Errors = append(r.Errors, ValidationError{
		Subject: subject,
		Field:   field,
		Message: message,
		Level:   level,
	})
	if level == ValidationLevelError {
		r.Valid = false
	}
}

// Warnings returns only the warning-level entries
func (r *ValidationResult) Warnings() []ValidationError {
	var out []ValidationError
	for _, e := range r.Errors {
		if e.Level == ValidationLevelWarning {
			out = append(out, e)
		}
	}
	return out
}

// Err returns the first error-level entry, or nil when the result is valid.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	for i := range r.Errors {
		if r.Errors[i].Level == ValidationLevelError {
			e := r.Errors[i]
			return &e
		}
	}
	return types.ErrInvalidInput
}

// CallValidator validates call submissions against the configured bounds
type CallValidator struct {
	maxDuration int
}

// NewCallValidator creates a validator accepting durations in 1..maxDuration
func NewCallValidator(maxDuration int) *CallValidator {
	return &CallValidator{maxDuration: maxDuration}
}

// MaxDuration returns the configured duration bound
func (v *CallValidator) MaxDuration() int {
	return v.maxDuration
}

// Validate checks every field of a call request
func (v *CallValidator) Validate(req types.CallRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if !req.Priority.IsValid() {
		result.AddError("call", "priority",
			fmt.Sprintf("unknown priority %d (want 0-VIP, 1-High, 2-Medium, 3-Low)", int(req.Priority)),
			ValidationLevelError)
	}

	if req.Duration < 1 || req.Duration > v.maxDuration {
		result.AddError("call", "duration",
			fmt.Sprintf("duration %d outside 1..%d seconds", req.Duration, v.maxDuration),
			ValidationLevelError)
	}

	v.validateCallerName(req.CallerName, result)
	v.validatePhoneNumber(req.PhoneNumber, result)

	return result
}

func (v *CallValidator) validateCallerName(name string, result *ValidationResult) {
	if strings.TrimSpace(name) == "" {
		result.AddError("call", "callerName", "caller name is required", ValidationLevelError)
		return
	}
	if n := utf8.RuneCountInString(name); n > types.MaxCallerName {
		result.AddError("call", "callerName",
			fmt.Sprintf("caller name is %d characters, limit is %d", n, types.MaxCallerName),
			ValidationLevelError)
	}
}

func (v *CallValidator) validatePhoneNumber(phone string, result *ValidationResult) {
	if phone == "" {
		result.AddError("call", "phoneNumber", "phone number is required", ValidationLevelError)
		return
	}
	if n := utf8.RuneCountInString(phone); n > types.MaxPhoneNumber {
		result.AddError("call", "phoneNumber",
			fmt.Sprintf("phone number is %d characters, limit is %d", n, types.MaxPhoneNumber),
			ValidationLevelError)
		return
	}
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' && i == 0:
		case r == '-' || r == ' ' || r == '(' || r == ')':
		default:
			result.AddError("call", "phoneNumber",
				fmt.Sprintf("unexpected character %q in phone number", r),
				ValidationLevelError)
			return
		}
	}
}
