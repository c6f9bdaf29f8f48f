// Package domain defines the core domain models for guildsync.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
//
// Codes have the form GS-<AREA>-<NNNN>. Two DomainErrors are considered
// equal by errors.Is when their codes match, so sentinel values below can be
// decorated with WithDetails/WithCause and still be matched.
type DomainError struct {
	Code    string // Error code (e.g., "GS-EVT-4000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Event Errors (EVT)
// ============================================================================

var (
	// ErrMalformedEnvelope indicates an envelope is missing a required field.
	ErrMalformedEnvelope = NewDomainError("GS-EVT-4000", "malformed envelope")

	// ErrShardOutOfRange indicates an envelope names a shard this session does not own.
	ErrShardOutOfRange = NewDomainError("GS-EVT-4001", "shard out of range")

	// ErrUnknownEventType indicates a wire frame carries an unrecognised event name.
	ErrUnknownEventType = NewDomainError("GS-EVT-4002", "unknown event type")

	// ErrHandlerPanic indicates an event handler panicked.
	ErrHandlerPanic = NewDomainError("GS-EVT-5000", "event handler panic")

	// ErrRunnerClosed indicates the shard runner no longer accepts envelopes.
	ErrRunnerClosed = NewDomainError("GS-EVT-5030", "shard runner closed")
)

// ============================================================================
// Metric Errors (MET)
// ============================================================================

var (
	// ErrDuplicateMetric indicates a metric name was registered twice.
	ErrDuplicateMetric = NewDomainError("GS-MET-4090", "duplicate metric registration")

	// ErrRegistryFrozen indicates a registration after the store was built.
	ErrRegistryFrozen = NewDomainError("GS-MET-4091", "metric registry is frozen")

	// ErrInvalidMetric indicates a metric definition is incomplete.
	ErrInvalidMetric = NewDomainError("GS-MET-4003", "invalid metric definition")

	// ErrUnknownMetric indicates an update for a metric that was never registered.
	ErrUnknownMetric = NewDomainError("GS-MET-4040", "unknown metric")

	// ErrLabelMismatch indicates a label tuple does not match the declared label names.
	ErrLabelMismatch = NewDomainError("GS-MET-4000", "label tuple does not match metric definition")

	// ErrInvalidLabelValue indicates a label value that is not valid UTF-8.
	ErrInvalidLabelValue = NewDomainError("GS-MET-4004", "label value is not valid UTF-8")

	// ErrKindMismatch indicates an operation not supported by the metric kind.
	ErrKindMismatch = NewDomainError("GS-MET-4001", "operation not supported by metric kind")

	// ErrNegativeIncrement indicates an attempt to decrease a counter.
	ErrNegativeIncrement = NewDomainError("GS-MET-4002", "counter increment must not be negative")

	// ErrCardinalityExceeded indicates a metric reached its series cap.
	ErrCardinalityExceeded = NewDomainError("GS-MET-4290", "metric cardinality limit reached")
)

// ============================================================================
// Persistence Errors (PER)
// ============================================================================

var (
	// ErrPersistFailed indicates a persistence write failed after retries.
	ErrPersistFailed = NewDomainError("GS-PER-5000", "persistence write failed")

	// ErrPersistQueueFull indicates a persistence job was dropped because its queue was full.
	ErrPersistQueueFull = NewDomainError("GS-PER-5030", "persistence queue full")

	// ErrPersistClosed indicates the persister has been stopped.
	ErrPersistClosed = NewDomainError("GS-PER-5031", "persister closed")

	// ErrRoleNotFound indicates a role is absent from the persistence store.
	ErrRoleNotFound = NewDomainError("GS-PER-4040", "role not found")
)

// ============================================================================
// Configuration Errors (CFG)
// ============================================================================

var (
	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = NewDomainError("GS-CFG-4000", "invalid configuration")
)
