/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Component packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Malformed or missing caller input (age, dates, amounts)
  2. Configuration errors - Rate table missing, unloadable, or without an
     applicable period/band for a valid date
  3. Computation errors - Unexpected internal failures

PROPAGATION:
  None of these escape the engine as faults. The classifier turns them into
  a failed result (success=false, AMBER) carrying ErrorCode(err), so callers
  always see "needs review" and never a false GREEN.

USAGE:
  if errors.Is(err, generic.ErrNoApplicableRatePeriod) {
      // rate configuration is stale
  }

SEE ALSO:
  - rates/table.go: Returns configuration errors
  - prp/aggregate.go: Returns validation errors
  - rag/classifier.go: Converts errors into failed results
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every caller-input error.
	ErrValidation = errors.New("validation error")

	// ErrConfiguration is the root of every rate/rules configuration error.
	ErrConfiguration = errors.New("configuration error")

	// ErrComputation is returned for unexpected internal failures.
	ErrComputation = errors.New("computation error")

	// ErrNoApplicableRatePeriod is returned when no rate period covers a pay date.
	ErrNoApplicableRatePeriod = fmt.Errorf("%w: no applicable rate period", ErrConfiguration)

	// ErrNoApplicableRateBand is returned when no band in the period covers an age.
	ErrNoApplicableRateBand = fmt.Errorf("%w: no applicable rate band", ErrConfiguration)

	// ErrNoOffsetRule is returned when no accommodation offset rule covers a pay date.
	ErrNoOffsetRule = fmt.Errorf("%w: no accommodation offset rule", ErrConfiguration)

	// ErrNotFound is returned when a stored record does not exist.
	ErrNotFound = errors.New("not found")
)

// Error codes surfaced in failed results and API responses.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNoRatePeriod  = "NO_APPLICABLE_RATE_PERIOD"
	CodeNoRateBand    = "NO_APPLICABLE_RATE_BAND"
	CodeNoOffsetRule  = "NO_ACCOMMODATION_OFFSET_RULE"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeComputation   = "COMPUTATION_ERROR"
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func NewValidationError(field string, value any, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConfigurationError describes a configuration document that failed to load.
type ConfigurationError struct {
	Source string // file path or "embedded"
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}

// ComputationError wraps an unexpected failure inside a calculation step.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() []error {
	return []error{ErrComputation, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConfigurationError returns true if the rate or rules configuration is at fault.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ErrorCode maps an error to its stable code. Unknown errors are computation errors.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNoApplicableRatePeriod):
		return CodeNoRatePeriod
	case errors.Is(err, ErrNoApplicableRateBand):
		return CodeNoRateBand
	case errors.Is(err, ErrNoOffsetRule):
		return CodeNoOffsetRule
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	default:
		return CodeComputation
	}
}
