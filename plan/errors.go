/*
errors.go - Centralized error types for the plan engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Transport layers map these to status codes; errors.Is works across
  every wrapping layer.

ERROR CATEGORIES:
  1. Validation errors - malformed or missing caller input
  2. Lookup errors - referenced rows that do not exist
  3. Store errors - database-level failures, wrapped with context

SEE ALSO:
  - engine.go: Validates input and wraps store failures
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package plan

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned when caller input fails validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when no plan row matches the given scope,
	// for example reading a remark for a customer that was never planned.
	ErrNotFound = errors.New("plan row not found")

	// ErrStoreFailed is returned when the backing store rejects an operation.
	ErrStoreFailed = errors.New("store operation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ArgumentError names the offending field of a validation failure.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidArgument) match.
func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArg(field, reason string) error {
	return &ArgumentError{Field: field, Reason: reason}
}

// IsClientError reports whether err is the caller's fault rather than ours.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrNotFound)
}
