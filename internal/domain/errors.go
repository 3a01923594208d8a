package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Persistence errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// ValidationError reports client input that failed validation. Message is safe
// to return to callers as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseDate accepts YYYY-MM-DD or RFC3339 values.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, NewValidationError(field, "is required")
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, NewValidationError(field, "must be a date in YYYY-MM-DD or RFC3339 format")
}

// RequireMinLength validates a trimmed text field.
func RequireMinLength(field, value string, min int) error {
	if len([]rune(strings.TrimSpace(value))) < min {
		return NewValidationError(field, "is required and must have at least %d characters", min)
	}
	return nil
}
