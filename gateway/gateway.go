// Package gateway defines the token transfer boundary. The engine moves
// tokens only through a Gateway. A transfer moves the whole amount or
// nothing, but a failed call does not always say which: only the errors
// accepted by IsDefinitive prove that nothing moved.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/vesting/address"
)

var (
	// ErrInsufficientFunds is returned when the source balance is below
	// the requested amount.
	ErrInsufficientFunds = errors.New("gateway: insufficient funds")

	// ErrTransferFailed is returned when the outcome of a transfer is
	// unknown, for example when the connection dropped after the request
	// was sent. Replaying the same ID resolves it.
	ErrTransferFailed = errors.New("gateway: transfer failed")

	// ErrIdempotencyConflict is returned when a transfer ID is reused with
	// different parameters.
	ErrIdempotencyConflict = errors.New("gateway: transfer id reused with different parameters")

	// ErrInvalidRequest is returned for a malformed request.
	ErrInvalidRequest = errors.New("gateway: invalid transfer request")

	// ErrRejected is returned when the gateway refused the transfer and
	// moved nothing.
	ErrRejected = errors.New("gateway: transfer rejected")
)

// IsDefinitive reports whether err proves that a transfer moved no tokens.
// Any other error leaves the outcome unknown.
func IsDefinitive(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrIdempotencyConflict) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrRejected)
}

// TransferRequest moves Amount of Mint from From to To. ID is the
// idempotency key: repeating a request that already succeeded succeeds
// again without moving tokens twice.
type TransferRequest struct {
	ID     string
	From   address.Address
	To     address.Address
	Mint   address.Address
	Amount int64
}

// Validate checks the request shape.
func (r TransferRequest) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: missing transfer id", ErrInvalidRequest)
	case r.Amount <= 0:
		return fmt.Errorf("%w: amount %d must be positive", ErrInvalidRequest, r.Amount)
	case r.From == r.To:
		return fmt.Errorf("%w: source and destination are the same", ErrInvalidRequest)
	}
	return nil
}

// Fingerprint identifies the parameters bound to a transfer ID.
func (r TransferRequest) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%d", r.From, r.To, r.Mint, r.Amount)
}

// Gateway moves tokens and reports balances.
type Gateway interface {
	// Transfer returns nil once the tokens have moved. An error accepted
	// by IsDefinitive means nothing moved; any other error means the
	// transfer may or may not have been applied.
	Transfer(ctx context.Context, req TransferRequest) error

	// Balance is a read-only lookup of owner's holding of mint.
	Balance(ctx context.Context, owner, mint address.Address) (int64, error)
}

// Depositor credits tokens from outside the ledger. Banks used for local
// deployments and tests implement it.
type Depositor interface {
	Deposit(ctx context.Context, owner, mint address.Address, amount int64) error
}
