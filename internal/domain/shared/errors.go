// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors. Validation failures are local: they are computed before
	// any I/O and are never sent over the persistence boundary.
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrSaveNotAllowed  = errors.New("save not allowed in current state")

	// Persistence errors. These are recoverable by retry: the in-memory draft
	// and the locally cached draft survive them.
	ErrPersistence      = errors.New("persistence error")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("operation timeout")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "feed", "ticket", "taxonomy"
	Op      string // Operation that failed, e.g., "Save", "Schedule"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Feed domain errors
var (
	ErrRecordNotFound       = NewDomainError("feed", "Find", ErrNotFound, "feed record not found")
	ErrCardNotDirty         = NewDomainError("feed", "Save", ErrSaveNotAllowed, "card has no unsaved changes")
	ErrCardInvalid          = NewDomainError("feed", "Save", ErrValidation, "card fails validation and cannot be submitted")
	ErrCardInFlight         = NewDomainError("feed", "Save", ErrInvalidState, "a save for this card is already in flight")
	ErrAbsenceReasonMissing = NewDomainError("feed", "Validate", ErrEmptyValue, "absence reason is required when status is absent")
	ErrAbsenceDetailMissing = NewDomainError("feed", "Validate", ErrEmptyValue, "absence detail is required when reason is other")
)

// Ticket domain errors
var (
	ErrTicketNotFound       = NewDomainError("ticket", "Find", ErrNotFound, "makeup ticket not found")
	ErrTicketAlreadyOpen    = NewDomainError("ticket", "Create", ErrAlreadyExists, "an open makeup ticket already exists for this absence")
	ErrScheduleDateRequired = NewDomainError("ticket", "Schedule", ErrEmptyValue, "scheduled date is required")
	ErrCancelReasonRequired = NewDomainError("ticket", "Cancel", ErrEmptyValue, "cancellation reason is required")
	ErrIllegalTransition    = NewDomainError("ticket", "Transition", ErrStateTransition, "ticket does not permit this transition from its current state")
)

// Taxonomy domain errors
var (
	ErrOptionSetNotFound = NewDomainError("taxonomy", "Find", ErrNotFound, "option set not found")
	ErrUnknownReason     = NewDomainError("taxonomy", "Resolve", ErrInvalidInput, "unknown absence reason")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error. Validation errors
// block a save locally and must never reach the store.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsPersistence checks if the error came from the durable store.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsIllegalTransition checks if the error is a rejected lifecycle transition.
func IsIllegalTransition(err error) bool {
	return errors.Is(err, ErrStateTransition)
}

// IsRetryable checks if the operation can be retried. Only transient store
// conditions qualify; validation and transition errors never do.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
