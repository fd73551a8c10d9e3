package repcl

import (
	"errors"
	"fmt"

	"github.com/roach88/repcl/internal/bitfield"
)

// ClockError represents an error raised by clock construction or operation.
type ClockError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes clock errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates invalid construction parameters,
	// including a packed table that does not fit in the word.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// ErrCodeValueTooLarge indicates an offset write wider than its field.
	// Clamping in Shift, Tick and Merge makes this unreachable.
	ErrCodeValueTooLarge ErrorCode = "VALUE_TOO_LARGE"

	// ErrCodeEpochRegression indicates a shift to an epoch below hlc.
	ErrCodeEpochRegression ErrorCode = "EPOCH_REGRESSION"

	// ErrCodeInvalidSnapshot indicates a snapshot that violates the clock
	// invariants for a configuration.
	ErrCodeInvalidSnapshot ErrorCode = "INVALID_SNAPSHOT"
)

// Error implements the error interface.
func (e *ClockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ClockError) Unwrap() error {
	return e.Err
}

// IsConfigurationError returns true if err is a configuration error.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsEpochRegression returns true if err reports a backwards shift.
func IsEpochRegression(err error) bool {
	return hasCode(err, ErrCodeEpochRegression)
}

// IsInvalidSnapshot returns true if err reports a malformed snapshot.
func IsInvalidSnapshot(err error) bool {
	return hasCode(err, ErrCodeInvalidSnapshot)
}

// IsValueTooLarge returns true if err is a field overflow, either as a
// ClockError or as the underlying bitfield error.
func IsValueTooLarge(err error) bool {
	if hasCode(err, ErrCodeValueTooLarge) {
		return true
	}
	var vtl *bitfield.ValueTooLargeError
	return errors.As(err, &vtl)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *ClockError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func configError(format string, args ...any) *ClockError {
	return &ClockError{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

func snapshotError(format string, args ...any) *ClockError {
	return &ClockError{Code: ErrCodeInvalidSnapshot, Message: fmt.Sprintf(format, args...)}
}

// mustFit unwraps a packed-word write. A failed write means the clamping
// in the engine is broken, so it panics instead of returning.
func mustFit(word uint64, err error) uint64 {
	if err != nil {
		panic(&ClockError{Code: ErrCodeValueTooLarge, Message: "offset write exceeds field width", Err: err})
	}
	return word
}
