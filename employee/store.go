package employee

import (
	"context"

	"github.com/xraph/vesting/address"
)

// Store persists employee accounts. Accounts are never deleted.
type Store interface {
	// Create fails with vesting.ErrDuplicateAccount when the address
	// (and so the (VestingAccount, Beneficiary) pair) already exists.
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, addr address.Address) (*Account, error)
	ListByVestingAccount(ctx context.Context, vestingAccount address.Address, opts ListOpts) ([]*Account, error)
	ListByBeneficiary(ctx context.Context, beneficiary address.Address, opts ListOpts) ([]*Account, error)

	// RecordWithdrawal adds delta to TotalWithdrawn and bumps Version,
	// but only when the stored Version equals expectedVersion and the
	// result stays within [0, TotalAmount]. A stale version fails with
	// vesting.ErrConcurrentClaim, a bound violation with
	// vesting.ErrWithdrawalBound. It returns the updated account.
	RecordWithdrawal(ctx context.Context, addr address.Address, expectedVersion, delta int64) (*Account, error)
}

// ListOpts pages a listing. Results are ordered by creation time, then
// address. A zero Limit means no limit.
type ListOpts struct {
	Limit  int
	Offset int
}
