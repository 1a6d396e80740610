package vesting

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput = errors.New("vesting: invalid input")
	ErrUnauthorized = errors.New("vesting: unauthorized")

	// Account errors
	ErrAccountNotFound  = errors.New("vesting: account not found")
	ErrDuplicateAccount = errors.New("vesting: account already exists")
	ErrInvalidSchedule  = errors.New("vesting: invalid vesting schedule")

	// Claim errors
	ErrNothingToClaim    = errors.New("vesting: nothing to claim")
	ErrInsufficientFunds = errors.New("vesting: insufficient treasury funds")
	ErrTransferFailed    = errors.New("vesting: transfer failed")
	ErrConcurrentClaim   = errors.New("vesting: concurrent claim on account")
	ErrClaimNotFound     = errors.New("vesting: claim not found")
	ErrDuplicateClaim    = errors.New("vesting: claim already recorded")
	ErrWithdrawalBound   = errors.New("vesting: withdrawal outside schedule bounds")

	// Store errors
	ErrStoreClosed     = errors.New("vesting: store is closed")
	ErrMigrationFailed = errors.New("vesting: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("vesting: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "vesting: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("vesting: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrClaimNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried. The ledger is unchanged whenever one of these is returned
// from a claim.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, ErrConcurrentClaim)
}

// IsClaimRejection returns true if a claim was refused before any tokens
// could move.
func IsClaimRejection(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNothingToClaim) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInsufficientFunds)
}
