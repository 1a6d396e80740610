// Package memory provides an in-process token bank implementing
// gateway.Gateway.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/gateway"
)

var (
	_ gateway.Gateway   = (*Bank)(nil)
	_ gateway.Depositor = (*Bank)(nil)
)

type balanceKey struct {
	owner address.Address
	mint  address.Address
}

// Bank holds balances in a map. Applied transfer IDs are remembered for
// the life of the bank.
type Bank struct {
	mu       sync.Mutex
	balances map[balanceKey]int64
	applied  map[string]string
}

// New returns an empty bank.
func New() *Bank {
	return &Bank{
		balances: make(map[balanceKey]int64),
		applied:  make(map[string]string),
	}
}

func (b *Bank) Transfer(ctx context.Context, req gateway.TransferRequest) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", gateway.ErrTransferFailed, err)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fp := req.Fingerprint()
	if prev, ok := b.applied[req.ID]; ok {
		if prev != fp {
			return gateway.ErrIdempotencyConflict
		}
		return nil
	}

	from := balanceKey{owner: req.From, mint: req.Mint}
	if b.balances[from] < req.Amount {
		return fmt.Errorf("%w: have %d, need %d", gateway.ErrInsufficientFunds, b.balances[from], req.Amount)
	}
	b.balances[from] -= req.Amount
	b.balances[balanceKey{owner: req.To, mint: req.Mint}] += req.Amount
	b.applied[req.ID] = fp
	return nil
}

func (b *Bank) Balance(_ context.Context, owner, mint address.Address) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.balances[balanceKey{owner: owner, mint: mint}], nil
}

func (b *Bank) Deposit(_ context.Context, owner, mint address.Address, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("memory bank: deposit amount %d must be positive", amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances[balanceKey{owner: owner, mint: mint}] += amount
	return nil
}
