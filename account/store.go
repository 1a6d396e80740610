package account

import (
	"context"

	"github.com/xraph/vesting/address"
)

// Store persists vesting accounts. Accounts are never updated or deleted.
type Store interface {
	// Create fails with vesting.ErrDuplicateAccount when an account for
	// the same (Owner, CompanyName) already exists.
	Create(ctx context.Context, a *VestingAccount) error
	Get(ctx context.Context, addr address.Address) (*VestingAccount, error)
	GetByCompany(ctx context.Context, owner address.Address, companyName string) (*VestingAccount, error)
	List(ctx context.Context, opts ListOpts) ([]*VestingAccount, error)
	ListByOwner(ctx context.Context, owner address.Address, opts ListOpts) ([]*VestingAccount, error)
}

// ListOpts pages a listing. Results are ordered by creation time, then
// address. A zero Limit means no limit.
type ListOpts struct {
	Limit  int
	Offset int
}
