package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the storage format of every date column.
	DateLayout = "2006-01-02"
	// TimeLayout is the storage format of every time-of-day column.
	TimeLayout = "15:04"

	// MinPasswordLength is the shortest password accepted for a user account.
	MinPasswordLength = 6
	// MaxPasswordLength is the most bcrypt will hash, in bytes.
	MaxPasswordLength = 72
)

// ValidationError reports a field that failed boundary validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func requireText(field, value string) error {
	if isBlank(value) {
		return invalid(field, "is required")
	}
	return nil
}

// ValidateDate checks that value is a real calendar date in YYYY-MM-DD form.
func ValidateDate(field, value string) error {
	if isBlank(value) {
		return invalid(field, "is required")
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil || t.Format(DateLayout) != value {
		return invalid(field, "must be a date in YYYY-MM-DD format (got %q)", value)
	}
	return nil
}

// ValidateTime checks that value is a time of day in HH:MM form.
func ValidateTime(field, value string) error {
	if isBlank(value) {
		return invalid(field, "is required")
	}
	t, err := time.Parse(TimeLayout, value)
	if err != nil || t.Format(TimeLayout) != value {
		return invalid(field, "must be a time in HH:MM format (got %q)", value)
	}
	return nil
}

// ValidateTimeRange checks both ends and that end is strictly after start.
func ValidateTimeRange(start, end string) error {
	if err := ValidateTime("start_time", start); err != nil {
		return err
	}
	if err := ValidateTime("end_time", end); err != nil {
		return err
	}
	// Zero-padded HH:MM sorts lexically.
	if end <= start {
		return invalid("end_time", "must be after start_time (%s <= %s)", end, start)
	}
	return nil
}

// ValidatePassword checks a new password and its confirmation.
func ValidatePassword(password, confirm string) error {
	if password != confirm {
		return invalid("password", "and confirmation do not match")
	}
	if len(password) < MinPasswordLength {
		return invalid("password", "must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return invalid("password", "must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}
