/*
errors.go - Centralized error types for the reservation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores wrap the storage sentinels; the engine maps business rejections
  to per-code sentinels so callers can use errors.Is.

ERROR CATEGORIES:
  1. Rejections - Business rule violations, returned as Outcomes
  2. Storage - Read failures (absorbed, logged) and write failures (reported)
  3. Input - Malformed dates and ledger deltas

PROPAGATION:
  Rejections never leave the engine as errors; Outcome.Err() converts one
  on demand. Read failures degrade to empty collections. Write failures
  roll back the purchase transaction and are returned to the caller.

SEE ALSO:
  - engine.go: Produces rejections
  - store/jsonfile, store/sqlite: Wrap storage sentinels
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Rejections, one per Outcome code.
	ErrNotFound              = errors.New("club or competition not found")
	ErrCompetitionClosed     = errors.New("competition closed")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrCompetitionFull       = errors.New("competition full")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrCapExceeded           = errors.New("per-competition cap exceeded")
	ErrInsufficientPoints    = errors.New("insufficient points")

	// ErrStorageUnavailable is returned when a backing collection is missing
	// or cannot be decoded. Callers fall back to an empty collection.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageWriteFailed is returned when a collection or the ledger
	// cannot be persisted. The surrounding transaction is rolled back.
	ErrStorageWriteFailed = errors.New("storage write failed")

	// ErrInvalidDate is returned by TimeGate for unparseable dates.
	ErrInvalidDate = errors.New("invalid competition date")

	// ErrInvalidDelta is returned when a ledger increment is not positive.
	ErrInvalidDelta = errors.New("ledger delta must be positive")
)

var rejectionSentinels = map[Code]error{
	CodeNotFound:              ErrNotFound,
	CodeCompetitionClosed:     ErrCompetitionClosed,
	CodeInvalidQuantity:       ErrInvalidQuantity,
	CodeCompetitionFull:       ErrCompetitionFull,
	CodeInsufficientInventory: ErrInsufficientInventory,
	CodeCapExceeded:           ErrCapExceeded,
	CodeInsufficientPoints:    ErrInsufficientPoints,
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RejectionError is a business rule rejection.
type RejectionError struct {
	Code    Code
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RejectionError) Unwrap() error {
	return rejectionSentinels[e.Code]
}

// StorageError describes a failed store operation.
type StorageError struct {
	Op       string // "load", "save", "get", "increment", "commit"
	Resource string // "clubs", "competitions", "bookings"
	Kind     error  // ErrStorageUnavailable or ErrStorageWriteFailed
	Err      error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Resource, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ReadError wraps a read failure as ErrStorageUnavailable.
func ReadError(op, resource string, err error) error {
	return &StorageError{Op: op, Resource: resource, Kind: ErrStorageUnavailable, Err: err}
}

// WriteError wraps a write failure as ErrStorageWriteFailed.
func WriteError(op, resource string, err error) error {
	return &StorageError{Op: op, Resource: resource, Kind: ErrStorageWriteFailed, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRejection returns true if err is a business rule rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

// IsNotFound returns true if the error indicates a missing club or competition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStorageFailure returns true for read or write storage failures.
func IsStorageFailure(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrStorageWriteFailed)
}
