package core

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports a precondition violated by an event, e.g. an
// aggregator receiving an event without a correlation ID. The offending event
// is never buffered or partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// TimeoutError reports that a bounded wait (WaitForEvents, WaitForEmptyQueue)
// expired before the awaited condition was observed. Timeouts are recoverable:
// the wait can simply be re-issued, no in-flight work is cancelled or rolled
// back.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

// NewTimeoutError creates a TimeoutError for the given operation.
func NewTimeoutError(op string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Op: op, Timeout: timeout}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
