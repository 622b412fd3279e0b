/*
errors.go - Centralized error types for the engine

PURPOSE:

	All error types in one place for consistency and discoverability.
	Domain adapters wrap these errors with additional context; callers
	classify them with errors.Is / errors.As or the helpers at the bottom.

ERROR CATEGORIES:
 1. Input errors - ValidationError, NotAuthorized (no state change)
 2. Lifecycle errors - InvalidTransition, AlreadyDecided (no state change)
 3. Idempotent replays - AlreadyInitialized, DuplicateTransaction
    (returned alongside the existing result; callers report success)
 4. Absent state - WalletNotFound, NotInitialized, RequestNotFound
 5. Concurrency - ConcurrencyConflict (retry the whole operation)

SEE ALSO:
  - ledger.go: Returns ledger errors
  - request.go: Returns lifecycle errors
  - api/errors.go: HTTP mapping
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
	// ErrValidation is returned for bad input shape or amount.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned for an illegal state move.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotAuthorized is returned when the policy check fails.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrAlreadyInitialized is returned, with the existing balance, when a
	// wallet is initialized twice. Callers treat it as success.
	ErrAlreadyInitialized = errors.New("wallet already initialized")

	// ErrDuplicateTransaction is returned, with the existing transaction,
	// when (wallet, cause, kind) is already recorded. Callers treat it as success.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrWalletNotFound is returned when appending to a wallet that has no
	// transactions yet.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrNotInitialized is returned when reading the balance of a wallet that
	// has no transactions yet. It is a zero-state, not a failure.
	ErrNotInitialized = errors.New("wallet not initialized")

	// ErrConcurrencyConflict is returned when an optimistic check fails.
	// The whole operation, including authorization, should be retried.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")

	// ErrInsufficientBalance is returned when an append would overdraw a wallet.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrRequestNotFound is returned when a request id is unknown.
	ErrRequestNotFound = errors.New("request not found")

	// ErrApprovalNotFound is returned when an approval id is unknown.
	ErrApprovalNotFound = errors.New("approval request not found")

	// ErrAlreadyDecided is returned when a decided approval is decided again.
	ErrAlreadyDecided = errors.New("approval already decided")

	// ErrUnknownDomain is returned when no adapter is registered for a domain.
	ErrUnknownDomain = errors.New("unknown request domain")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field. Message is user-facing.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError reports a trigger fired from a state that does not permit it.
type TransitionError struct {
	RequestID RequestID
	From      Status
	Trigger   Trigger
	cause     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s in status %s", e.Trigger, e.RequestID, e.From)
}

func (e *TransitionError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrInvalidTransition, e.cause}
	}
	return []error{ErrInvalidTransition}
}

// NotAuthorizedError carries the policy's refusal.
type NotAuthorizedError struct {
	ActorID string
	Amount  Amount
	Reason  string
}

func (e *NotAuthorizedError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("%s may not approve %s", e.ActorID, e.Amount)
}

func (e *NotAuthorizedError) Unwrap() error { return ErrNotAuthorized }

// BudgetExceededError reports an append that would drive a wallet negative.
// It is both a NotAuthorized failure and an insufficient balance.
type BudgetExceededError struct {
	WalletID  WalletID
	Available Amount
	Requested Amount
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("insufficient balance on %s: available %v, requested %v",
		e.WalletID, e.Available.Value, e.Requested.Value)
}

func (e *BudgetExceededError) Unwrap() []error {
	return []error{ErrNotAuthorized, ErrInsufficientBalance}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsIdempotentReplay returns true for no-op retries that must surface as success.
func IsIdempotentReplay(err error) bool {
	return errors.Is(err, ErrAlreadyInitialized) || errors.Is(err, ErrDuplicateTransaction)
}

// IsNotInitialized returns true when a wallet simply has no history yet.
func IsNotInitialized(err error) bool {
	return errors.Is(err, ErrNotInitialized) || errors.Is(err, ErrWalletNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNotAuthorized)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrApprovalNotFound) ||
		errors.Is(err, ErrUnknownDomain)
}
