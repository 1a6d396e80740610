// Package storetest is a conformance suite for store.Store backends.
//
//	func TestStore(t *testing.T) {
//		storetest.Run(t, func(t *testing.T) store.Store { return memory.New() })
//	}
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
)

// Factory returns an empty, migrated store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run runs every conformance test against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"VestingAccountUniqueness", testVestingAccountUniqueness},
		{"VestingAccountListing", testVestingAccountListing},
		{"NotFound", testNotFound},
		{"EmployeeListing", testEmployeeListing},
		{"RecordWithdrawal", testRecordWithdrawal},
		{"RecordWithdrawalSingleWinner", testRecordWithdrawalSingleWinner},
		{"ClaimJournal", testClaimJournal},
		{"PendingClaimsOldestFirst", testPendingClaimsOldestFirst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func entityAt(offset time.Duration) types.Entity {
	at := epoch.Add(offset)
	return types.Entity{CreatedAt: at, UpdatedAt: at}
}

func newAccount(owner address.Address, name string, offset time.Duration) *account.VestingAccount {
	return &account.VestingAccount{
		Entity:          entityAt(offset),
		Address:         address.Random(),
		Bump:            254,
		Owner:           owner,
		CompanyName:     name,
		Mint:            address.Random(),
		TreasuryAddress: address.Random(),
		TreasuryBump:    253,
	}
}

func newEmployee(vestingAccount, beneficiary address.Address, offset time.Duration) *employee.Account {
	return &employee.Account{
		Entity:         entityAt(offset),
		Address:        address.Random(),
		Bump:           255,
		Beneficiary:    beneficiary,
		VestingAccount: vestingAccount,
		StartTime:      0,
		CliffTime:      1000,
		EndTime:        2000,
		TotalAmount:    1000,
	}
}

func newClaim(emp *employee.Account, amount int64, offset time.Duration) *claim.Claim {
	return &claim.Claim{
		Entity:          entityAt(offset),
		ID:              id.NewClaimID(),
		EmployeeAccount: emp.Address,
		VestingAccount:  emp.VestingAccount,
		Beneficiary:     emp.Beneficiary,
		Treasury:        address.Random(),
		Mint:            address.Random(),
		Amount:          amount,
		WithdrawnBefore: emp.TotalWithdrawn,
		VersionBefore:   emp.Version,
		ClaimedAt:       1500,
		Status:          claim.StatusPending,
	}
}

// seedEmployee creates a vesting account and one grant under it.
func seedEmployee(t *testing.T, s store.Store) *employee.Account {
	t.Helper()
	ctx := context.Background()
	va := newAccount(address.Random(), "Acme", 0)
	require.NoError(t, s.CreateVestingAccount(ctx, va))
	e := newEmployee(va.Address, address.Random(), 0)
	require.NoError(t, s.CreateEmployeeAccount(ctx, e))
	return e
}

func testVestingAccountUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := address.Random()

	va := newAccount(owner, "Acme", 0)
	require.NoError(t, s.CreateVestingAccount(ctx, va))
	assert.ErrorIs(t, s.CreateVestingAccount(ctx, newAccount(owner, "Acme", time.Second)), vesting.ErrDuplicateAccount)

	// Same name under another owner is a different company.
	require.NoError(t, s.CreateVestingAccount(ctx, newAccount(address.Random(), "Acme", time.Second)))

	got, err := s.GetVestingAccountByCompany(ctx, owner, "Acme")
	require.NoError(t, err)
	assert.Equal(t, va.Address, got.Address)
	assert.Equal(t, va.Mint, got.Mint)
	assert.Equal(t, va.TreasuryAddress, got.TreasuryAddress)
	assert.Equal(t, uint8(254), got.Bump)
}

func testVestingAccountListing(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := address.Random()

	second := newAccount(owner, "Beta", 2*time.Second)
	first := newAccount(owner, "Alpha", time.Second)
	other := newAccount(address.Random(), "Gamma", 3*time.Second)
	for _, va := range []*account.VestingAccount{second, other, first} {
		require.NoError(t, s.CreateVestingAccount(ctx, va))
	}

	all, err := s.ListVestingAccounts(ctx, account.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.Address, all[0].Address)
	assert.Equal(t, other.Address, all[2].Address)

	mine, err := s.ListVestingAccountsByOwner(ctx, owner, account.ListOpts{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, first.Address, mine[0].Address)
	assert.Equal(t, second.Address, mine[1].Address)

	paged, err := s.ListVestingAccountsByOwner(ctx, owner, account.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, second.Address, paged[0].Address)
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetVestingAccount(ctx, address.Random())
	assert.ErrorIs(t, err, vesting.ErrAccountNotFound)
	_, err = s.GetVestingAccountByCompany(ctx, address.Random(), "Acme")
	assert.ErrorIs(t, err, vesting.ErrAccountNotFound)
	_, err = s.GetEmployeeAccount(ctx, address.Random())
	assert.ErrorIs(t, err, vesting.ErrAccountNotFound)
	_, err = s.GetClaim(ctx, id.NewClaimID())
	assert.ErrorIs(t, err, vesting.ErrClaimNotFound)
	assert.ErrorIs(t, s.ResolveClaim(ctx, id.NewClaimID(), claim.StatusSettled, ""), vesting.ErrClaimNotFound)
}

func testEmployeeListing(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice, bob := address.Random(), address.Random()
	va1 := newAccount(address.Random(), "Acme", 0)
	va2 := newAccount(address.Random(), "Initech", 0)
	require.NoError(t, s.CreateVestingAccount(ctx, va1))
	require.NoError(t, s.CreateVestingAccount(ctx, va2))

	e1 := newEmployee(va1.Address, alice, time.Second)
	e2 := newEmployee(va2.Address, alice, 2*time.Second)
	e3 := newEmployee(va1.Address, bob, 3*time.Second)
	for _, e := range []*employee.Account{e2, e3, e1} {
		require.NoError(t, s.CreateEmployeeAccount(ctx, e))
	}
	assert.ErrorIs(t, s.CreateEmployeeAccount(ctx, e1), vesting.ErrDuplicateAccount)

	got, err := s.ListEmployeesByBeneficiary(ctx, alice, employee.ListOpts{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, e1.Address, got[0].Address)
	assert.Equal(t, e2.Address, got[1].Address)
	for _, e := range got {
		assert.Equal(t, alice, e.Beneficiary)
	}

	paged, err := s.ListEmployeesByBeneficiary(ctx, alice, employee.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, e2.Address, paged[0].Address)

	none, err := s.ListEmployeesByBeneficiary(ctx, address.Random(), employee.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, none)

	byVA, err := s.ListEmployeesByVestingAccount(ctx, va1.Address, employee.ListOpts{})
	require.NoError(t, err)
	require.Len(t, byVA, 2)
	assert.Equal(t, e1.Address, byVA[0].Address)
	assert.Equal(t, e3.Address, byVA[1].Address)

	fetched, err := s.GetEmployeeAccount(ctx, e3.Address)
	require.NoError(t, err)
	assert.Equal(t, e3.Schedule(), fetched.Schedule())
	assert.Equal(t, uint8(255), fetched.Bump)
}

func testRecordWithdrawal(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := seedEmployee(t, s)

	updated, err := s.RecordWithdrawal(ctx, e.Address, 0, 750)
	require.NoError(t, err)
	assert.Equal(t, int64(750), updated.TotalWithdrawn)
	assert.Equal(t, int64(1), updated.Version)

	_, err = s.RecordWithdrawal(ctx, e.Address, 0, 10)
	assert.ErrorIs(t, err, vesting.ErrConcurrentClaim)

	_, err = s.RecordWithdrawal(ctx, e.Address, 1, 251)
	assert.ErrorIs(t, err, vesting.ErrWithdrawalBound)

	_, err = s.RecordWithdrawal(ctx, e.Address, 1, -751)
	assert.ErrorIs(t, err, vesting.ErrWithdrawalBound)

	// Rejected calls leave the row untouched.
	current, err := s.GetEmployeeAccount(ctx, e.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(750), current.TotalWithdrawn)
	assert.Equal(t, int64(1), current.Version)

	full, err := s.RecordWithdrawal(ctx, e.Address, 1, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), full.TotalWithdrawn)

	released, err := s.RecordWithdrawal(ctx, e.Address, 2, -250)
	require.NoError(t, err)
	assert.Equal(t, int64(750), released.TotalWithdrawn)
	assert.Equal(t, int64(3), released.Version)

	_, err = s.RecordWithdrawal(ctx, address.Random(), 0, 1)
	assert.ErrorIs(t, err, vesting.ErrAccountNotFound)
}

func testRecordWithdrawalSingleWinner(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := seedEmployee(t, s)

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		stale int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordWithdrawal(ctx, e.Address, 0, 100)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, vesting.ErrConcurrentClaim):
				stale++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, stale)
	got, err := s.GetEmployeeAccount(ctx, e.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.TotalWithdrawn)
	assert.Equal(t, int64(1), got.Version)
}

func testClaimJournal(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := seedEmployee(t, s)

	first := newClaim(e, 10, time.Second)
	second := newClaim(e, 20, 2*time.Second)
	require.NoError(t, s.CreateClaim(ctx, first))
	require.NoError(t, s.CreateClaim(ctx, second))
	assert.ErrorIs(t, s.CreateClaim(ctx, first), vesting.ErrDuplicateClaim)

	got, err := s.GetClaim(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.EmployeeAccount, got.EmployeeAccount)
	assert.Equal(t, first.Beneficiary, got.Beneficiary)
	assert.Equal(t, int64(10), got.Amount)
	assert.Equal(t, int64(1500), got.ClaimedAt)
	assert.Equal(t, claim.StatusPending, got.Status)

	require.NoError(t, s.ResolveClaim(ctx, first.ID, claim.StatusSettled, ""))
	assert.ErrorIs(t, s.ResolveClaim(ctx, first.ID, claim.StatusReverted, "again"), vesting.ErrClaimNotFound)
	require.NoError(t, s.ResolveClaim(ctx, second.ID, claim.StatusReverted, "insufficient funds"))

	list, err := s.ListClaims(ctx, e.Address, claim.ListOpts{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, "insufficient funds", list[0].Reason)

	settled, err := s.ListClaims(ctx, e.Address, claim.ListOpts{Status: claim.StatusSettled})
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, first.ID, settled[0].ID)

	paged, err := s.ListClaims(ctx, e.Address, claim.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].ID)

	pending, err := s.ListPendingClaims(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func testPendingClaimsOldestFirst(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := seedEmployee(t, s)
	b := seedEmployee(t, s)

	late := newClaim(a, 10, 3*time.Second)
	early := newClaim(b, 20, time.Second)
	middle := newClaim(a, 30, 2*time.Second)
	done := newClaim(b, 40, 4*time.Second)
	for _, c := range []*claim.Claim{late, early, middle, done} {
		require.NoError(t, s.CreateClaim(ctx, c))
	}
	require.NoError(t, s.ResolveClaim(ctx, done.ID, claim.StatusSettled, ""))

	pending, err := s.ListPendingClaims(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, early.ID, pending[0].ID)
	assert.Equal(t, middle.ID, pending[1].ID)
	assert.Equal(t, late.ID, pending[2].ID)
}
