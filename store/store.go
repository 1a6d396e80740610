package store

import (
	"context"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/id"
)

// Store is the unified storage interface for all Vesting entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Vesting account methods
	CreateVestingAccount(ctx context.Context, a *account.VestingAccount) error
	GetVestingAccount(ctx context.Context, addr address.Address) (*account.VestingAccount, error)
	GetVestingAccountByCompany(ctx context.Context, owner address.Address, companyName string) (*account.VestingAccount, error)
	ListVestingAccounts(ctx context.Context, opts account.ListOpts) ([]*account.VestingAccount, error)
	ListVestingAccountsByOwner(ctx context.Context, owner address.Address, opts account.ListOpts) ([]*account.VestingAccount, error)

	// Employee account methods
	CreateEmployeeAccount(ctx context.Context, a *employee.Account) error
	GetEmployeeAccount(ctx context.Context, addr address.Address) (*employee.Account, error)
	ListEmployeesByVestingAccount(ctx context.Context, vestingAccount address.Address, opts employee.ListOpts) ([]*employee.Account, error)
	ListEmployeesByBeneficiary(ctx context.Context, beneficiary address.Address, opts employee.ListOpts) ([]*employee.Account, error)
	RecordWithdrawal(ctx context.Context, addr address.Address, expectedVersion, delta int64) (*employee.Account, error)

	// Claim journal methods
	CreateClaim(ctx context.Context, c *claim.Claim) error
	GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error)
	ListClaims(ctx context.Context, employeeAccount address.Address, opts claim.ListOpts) ([]*claim.Claim, error)
	ListPendingClaims(ctx context.Context) ([]*claim.Claim, error)
	ResolveClaim(ctx context.Context, claimID id.ClaimID, status claim.Status, reason string) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
