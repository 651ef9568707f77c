/*
errors.go - Centralized error types for the rent-accounting engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP status codes.

ERROR CATEGORIES:
  1. Validation errors - Rejected caller input (bad date range, bad amount)
  2. Not-found errors  - Missing entities in the persistence collaborator
  3. Dispatch errors   - Notice delivery failures (never fatal to a result)

RESOLUTION MISSES ARE NOT ERRORS:
  "No active policy" degrades to a zero late fee and "no settings record"
  degrades to the default thresholds. Neither path produces an error; see
  latefee.go and dunning.go.

USAGE:
  if engine.IsClientError(err) {
      // 400, show the rejected-field message
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all caller-input failures.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDateRange is returned when endDate precedes startDate.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrNonPositiveRent is returned when monthly rent is zero or negative.
	ErrNonPositiveRent = errors.New("monthly rent must be positive")

	// ErrUnknownProrationMethod is returned for methods other than daily/exact.
	ErrUnknownProrationMethod = errors.New("unknown proration method")

	// ErrPolicyNotFound is returned when a referenced policy doesn't exist.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrNoticeDispatchFailed wraps notification collaborator failures.
	// Carried alongside a computed result, never instead of one.
	ErrNoticeDispatchFailed = errors.New("notice dispatch failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError reports a rejected input field. Unwraps to ErrValidation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrNonPositiveRent) ||
		errors.Is(err, ErrUnknownProrationMethod)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}
