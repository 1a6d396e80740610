package vesting_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/gateway"
	gwmemory "github.com/xraph/vesting/gateway/memory"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/schedule"
	"github.com/xraph/vesting/store/memory"
	"github.com/xraph/vesting/types"
)

// faultGateway fails every transfer while err is set. loseReplies makes
// the next n transfers apply and then report lostErr anyway.
type faultGateway struct {
	*gwmemory.Bank

	mu      sync.Mutex
	err     error
	lost    int
	lostErr error
}

func (f *faultGateway) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *faultGateway) loseReplies(n int, err error) {
	f.mu.Lock()
	f.lost, f.lostErr = n, err
	f.mu.Unlock()
}

func (f *faultGateway) Transfer(ctx context.Context, req gateway.TransferRequest) error {
	f.mu.Lock()
	err, lostErr := f.err, f.lostErr
	lose := f.lost > 0
	if lose {
		f.lost--
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := f.Bank.Transfer(ctx, req); err != nil {
		return err
	}
	if lose {
		return lostErr
	}
	return nil
}

// faultStore fails the next RecordWithdrawal with err, after applying it
// when applied is set.
type faultStore struct {
	*memory.Store

	mu      sync.Mutex
	err     error
	applied bool
}

func (s *faultStore) failWithdrawal(err error, applied bool) {
	s.mu.Lock()
	s.err, s.applied = err, applied
	s.mu.Unlock()
}

func (s *faultStore) RecordWithdrawal(ctx context.Context, addr address.Address, expectedVersion, delta int64) (*employee.Account, error) {
	s.mu.Lock()
	err, applied := s.err, s.applied
	s.err = nil
	s.mu.Unlock()
	if err == nil {
		return s.Store.RecordWithdrawal(ctx, addr, expectedVersion, delta)
	}
	if applied {
		if _, werr := s.Store.RecordWithdrawal(ctx, addr, expectedVersion, delta); werr != nil {
			return nil, werr
		}
	}
	return nil, err
}

type fixture struct {
	v     *vesting.Engine
	store *faultStore
	gw    *faultGateway
	now   *atomic.Int64

	owner address.Address
	alice address.Address
	mint  address.Address
	acct  *account.VestingAccount
	emp   *employee.Account
}

func (f *fixture) at(sec int64) { f.now.Store(sec) }

func (f *fixture) balance(t *testing.T, owner address.Address) int64 {
	t.Helper()
	b, err := f.gw.Balance(context.Background(), owner, f.mint)
	require.NoError(t, err)
	return b
}

func (f *fixture) reload(t *testing.T) *employee.Account {
	t.Helper()
	emp, err := f.v.GetEmployeeAccount(context.Background(), f.emp.Address)
	require.NoError(t, err)
	return emp
}

func (f *fixture) fund(t *testing.T, amount int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.gw.Deposit(ctx, f.owner, f.mint, amount))
	_, err := f.v.FundTreasury(ctx, f.owner, f.acct.Address, amount)
	require.NoError(t, err)
}

// newFixture builds an engine with one vesting account and one grant of
// start=0, cliff=1000, end=2000, total=1000 to alice.
func newFixture(t *testing.T, opts ...vesting.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store: &faultStore{Store: memory.New()},
		gw:    &faultGateway{Bank: gwmemory.New()},
		now:   new(atomic.Int64),
		owner: address.Random(),
		alice: address.Random(),
		mint:  address.Random(),
	}

	clock := vesting.ClockFunc(func() time.Time { return time.Unix(f.now.Load(), 0) })
	opts = append([]vesting.Option{
		vesting.WithGateway(f.gw),
		vesting.WithClock(clock),
	}, opts...)
	f.v = vesting.New(f.store, opts...)
	require.NoError(t, f.v.Start(ctx))
	t.Cleanup(func() { _ = f.v.Stop() })

	var err error
	f.acct, err = f.v.CreateVestingAccount(ctx, f.owner, "Acme", f.mint)
	require.NoError(t, err)

	f.emp, err = f.v.CreateEmployeeVesting(ctx, f.owner, f.acct.Address, f.alice, schedule.Schedule{
		StartTime:   0,
		CliffTime:   1000,
		EndTime:     2000,
		TotalAmount: 1000,
	})
	require.NoError(t, err)
	return f
}

func TestWorkedScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)

	f.at(500)
	_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	assert.ErrorIs(t, err, vesting.ErrNothingToClaim)
	st, err := f.v.Status(ctx, f.emp.Address)
	require.NoError(t, err)
	assert.Equal(t, schedule.StateCliffPeriod, st.State)
	assert.False(t, st.CanClaim)

	f.at(1500)
	c, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(750), c.Amount)
	assert.Equal(t, claim.StatusSettled, c.Status)
	assert.Equal(t, int64(750), f.reload(t).TotalWithdrawn)
	assert.Equal(t, int64(750), f.balance(t, f.alice))

	f.at(2000)
	c, err = f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(250), c.Amount)

	st, err = f.v.Status(ctx, f.emp.Address)
	require.NoError(t, err)
	assert.Equal(t, schedule.StateFullyWithdrawn, st.State)
	assert.Equal(t, "Fully Withdrawn", st.Label)
	assert.False(t, st.CanClaim)

	_, err = f.v.Claim(ctx, f.emp.Address, f.alice)
	assert.ErrorIs(t, err, vesting.ErrNothingToClaim)

	treasury, err := f.v.TreasuryBalance(ctx, f.acct.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(0), treasury)
	assert.Equal(t, int64(1000), f.balance(t, f.alice))

	claims, err := f.v.ListClaims(ctx, f.emp.Address, claim.ListOpts{})
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, int64(250), claims[0].Amount, "newest first")
}

func TestClaimAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	_, err := f.v.Claim(ctx, f.emp.Address, address.Random())
	assert.ErrorIs(t, err, vesting.ErrUnauthorized)
	assert.True(t, vesting.IsClaimRejection(err))

	_, err = f.v.Claim(ctx, f.emp.Address, f.owner)
	assert.ErrorIs(t, err, vesting.ErrUnauthorized)

	emp := f.reload(t)
	assert.Equal(t, int64(0), emp.TotalWithdrawn)
	assert.Equal(t, int64(0), emp.Version)

	claims, err := f.v.ListClaims(ctx, f.emp.Address, claim.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, claims)

	_, err = f.v.Claim(ctx, address.Random(), f.alice)
	assert.ErrorIs(t, err, vesting.ErrAccountNotFound)
}

func TestClaimFor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(3000)

	derived, err := vesting.DeriveEmployeeAccount(f.v.Namespace(), f.alice, f.acct.Address)
	require.NoError(t, err)
	assert.Equal(t, f.emp.Address, derived.Address)

	c, err := f.v.ClaimFor(ctx, f.acct.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.Amount)

	_, err = f.v.ClaimFor(ctx, f.acct.Address, address.Random())
	assert.ErrorIs(t, err, vesting.ErrAccountNotFound)
}

func TestClaimInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 100)
	f.at(1500)

	_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.ErrorIs(t, err, vesting.ErrInsufficientFunds)
	assert.ErrorIs(t, err, gateway.ErrInsufficientFunds)

	emp := f.reload(t)
	assert.Equal(t, int64(0), emp.TotalWithdrawn)
	assert.Equal(t, int64(0), f.balance(t, f.alice))
	assert.Equal(t, int64(100), f.balance(t, f.acct.TreasuryAddress))

	claims, err := f.v.ListClaims(ctx, f.emp.Address, claim.ListOpts{})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, claim.StatusReverted, claims[0].Status)
	assert.NotEmpty(t, claims[0].Reason)

	f.fund(t, 900)
	c, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(750), c.Amount)
}

func TestClaimTransferRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	f.gw.fail(fmt.Errorf("%w: account frozen", gateway.ErrRejected))
	_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.ErrorIs(t, err, vesting.ErrTransferFailed)
	assert.True(t, vesting.IsRetryable(err))

	emp := f.reload(t)
	assert.Equal(t, int64(0), emp.TotalWithdrawn)
	assert.Equal(t, int64(1000), f.balance(t, f.acct.TreasuryAddress))

	pending, err := f.store.ListPendingClaims(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	f.gw.fail(nil)
	c, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(750), c.Amount)
}

func TestClaimUnknownTransferOutcomeStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	f.gw.fail(errors.New("rpc unavailable"))
	_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.ErrorIs(t, err, vesting.ErrTransferFailed)

	// The reservation stands until the outcome is known.
	assert.Equal(t, int64(750), f.reload(t).TotalWithdrawn)
	assert.Equal(t, int64(0), f.balance(t, f.alice))
	pending, err := f.store.ListPendingClaims(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.v.Claim(ctx, f.emp.Address, f.alice)
	require.ErrorIs(t, err, vesting.ErrConcurrentClaim)
	assert.Equal(t, int64(0), f.balance(t, f.alice))

	f.gw.fail(nil)
	n, err := f.v.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, claim.StatusSettled, f.claimStatus(t, pending[0]))
	assert.Equal(t, int64(750), f.balance(t, f.alice))

	f.at(2000)
	next, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(250), next.Amount)
	assert.Equal(t, int64(1000), f.balance(t, f.alice))
	assert.Equal(t, int64(0), f.balance(t, f.acct.TreasuryAddress))
}

func TestClaimReplaysTransferAfterLostReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	f.gw.loseReplies(1, errors.New("connection reset"))
	c, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, claim.StatusSettled, c.Status)
	assert.Equal(t, int64(750), f.balance(t, f.alice))

	f.at(2000)
	_, err = f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), f.balance(t, f.alice))
	assert.Equal(t, int64(0), f.balance(t, f.acct.TreasuryAddress))
}

func TestClaimLostRepliesDoNotPayTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	f.gw.loseReplies(2, errors.New("connection reset"))
	_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.ErrorIs(t, err, vesting.ErrTransferFailed)
	assert.Equal(t, int64(750), f.balance(t, f.alice))
	assert.Equal(t, int64(750), f.reload(t).TotalWithdrawn)

	n, err := f.v.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(750), f.balance(t, f.alice))
	assert.Equal(t, int64(250), f.balance(t, f.acct.TreasuryAddress))

	_, err = f.v.Claim(ctx, f.emp.Address, f.alice)
	assert.ErrorIs(t, err, vesting.ErrNothingToClaim)

	f.at(2000)
	_, err = f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), f.balance(t, f.alice))
	assert.Equal(t, int64(0), f.balance(t, f.acct.TreasuryAddress))
}

func TestClaimReservationOutcomeUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	f.store.failWithdrawal(errors.New("connection reset"), true)
	_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "left pending")

	pending, err := f.store.ListPendingClaims(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(750), f.reload(t).TotalWithdrawn)
	assert.Equal(t, int64(0), f.balance(t, f.alice))

	n, err := f.v.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, claim.StatusSettled, f.claimStatus(t, pending[0]))
	assert.Equal(t, int64(750), f.balance(t, f.alice))

	_, err = f.v.Claim(ctx, f.emp.Address, f.alice)
	assert.ErrorIs(t, err, vesting.ErrNothingToClaim)
	assert.Equal(t, int64(750), f.balance(t, f.alice))
}

func TestClaimReservationFailedBeforeApplying(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	f.store.failWithdrawal(errors.New("connection reset"), false)
	_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.Error(t, err)

	pending, err := f.store.ListPendingClaims(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// The next claim reverts the stale one and pays normally.
	c, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(750), c.Amount)
	assert.Equal(t, claim.StatusReverted, f.claimStatus(t, pending[0]))
	assert.Equal(t, int64(750), f.balance(t, f.alice))
}

func TestClaimStaleReservationReverted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	f.store.failWithdrawal(vesting.ErrConcurrentClaim, false)
	_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.ErrorIs(t, err, vesting.ErrConcurrentClaim)

	pending, err := f.store.ListPendingClaims(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	claims, err := f.v.ListClaims(ctx, f.emp.Address, claim.ListOpts{})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, claim.StatusReverted, claims[0].Status)
	assert.Equal(t, int64(0), f.reload(t).TotalWithdrawn)
}

func TestConcurrentClaimsPayOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	const workers = 16
	var (
		wg      sync.WaitGroup
		settled atomic.Int64
		empty   atomic.Int64
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
			switch {
			case err == nil:
				settled.Add(1)
			case errors.Is(err, vesting.ErrNothingToClaim):
				empty.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), settled.Load())
	assert.Equal(t, int64(workers-1), empty.Load())
	assert.Equal(t, int64(750), f.balance(t, f.alice))
	assert.Equal(t, int64(750), f.reload(t).TotalWithdrawn)
}

func TestClaimsOnDifferentAccountsRunInParallel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 10_000)
	f.at(5000)

	beneficiaries := make([]address.Address, 8)
	for i := range beneficiaries {
		beneficiaries[i] = address.Random()
		_, err := f.v.CreateEmployeeVesting(ctx, f.owner, f.acct.Address, beneficiaries[i], schedule.Schedule{
			StartTime: 0, CliffTime: 0, EndTime: 1000, TotalAmount: 100,
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, b := range beneficiaries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.v.ClaimFor(ctx, f.acct.Address, b)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, b := range beneficiaries {
		assert.Equal(t, int64(100), f.balance(t, b))
	}
	assert.Equal(t, int64(10_000-800), f.balance(t, f.acct.TreasuryAddress))
}

// ──────────────────────────────────────────────────
// Recovery
// ──────────────────────────────────────────────────

// pendingClaim journals a claim for amount exactly as Claim would before
// reserving.
func (f *fixture) pendingClaim(t *testing.T, amount int64) *claim.Claim {
	t.Helper()
	return f.pendingClaimAt(t, amount, time.Now().UTC())
}

func (f *fixture) pendingClaimAt(t *testing.T, amount int64, createdAt time.Time) *claim.Claim {
	t.Helper()
	emp := f.reload(t)
	c := &claim.Claim{
		Entity:          types.Entity{CreatedAt: createdAt, UpdatedAt: createdAt},
		ID:              id.NewClaimID(),
		EmployeeAccount: emp.Address,
		VestingAccount:  f.acct.Address,
		Beneficiary:     f.alice,
		Treasury:        f.acct.TreasuryAddress,
		Mint:            f.mint,
		Amount:          amount,
		WithdrawnBefore: emp.TotalWithdrawn,
		VersionBefore:   emp.Version,
		ClaimedAt:       f.now.Load(),
		Status:          claim.StatusPending,
	}
	require.NoError(t, f.store.CreateClaim(context.Background(), c))
	return c
}

func (f *fixture) reserve(t *testing.T, c *claim.Claim) {
	t.Helper()
	_, err := f.store.RecordWithdrawal(context.Background(), c.EmployeeAccount, c.VersionBefore, c.Amount)
	require.NoError(t, err)
}

func (f *fixture) claimStatus(t *testing.T, c *claim.Claim) claim.Status {
	t.Helper()
	got, err := f.v.GetClaim(context.Background(), c.ID)
	require.NoError(t, err)
	return got.Status
}

func TestRecoverUnreservedClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	c := f.pendingClaim(t, 750)

	n, err := f.v.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, claim.StatusReverted, f.claimStatus(t, c))
	assert.Equal(t, int64(0), f.reload(t).TotalWithdrawn)
	assert.Equal(t, int64(0), f.balance(t, f.alice))
}

func TestRecoverReservedClaimReplaysTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	c := f.pendingClaim(t, 750)
	f.reserve(t, c)

	n, err := f.v.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, claim.StatusSettled, f.claimStatus(t, c))
	assert.Equal(t, int64(750), f.reload(t).TotalWithdrawn)
	assert.Equal(t, int64(750), f.balance(t, f.alice))
}

func TestRecoverTransferredClaimDoesNotPayTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	c := f.pendingClaim(t, 750)
	f.reserve(t, c)
	require.NoError(t, f.gw.Transfer(ctx, gateway.TransferRequest{
		ID: c.ID.String(), From: c.Treasury, To: c.Beneficiary, Mint: c.Mint, Amount: c.Amount,
	}))

	_, err := f.v.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, claim.StatusSettled, f.claimStatus(t, c))
	assert.Equal(t, int64(750), f.balance(t, f.alice))
	assert.Equal(t, int64(250), f.balance(t, f.acct.TreasuryAddress))
}

func TestRecoverReservedClaimReleasesOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.at(1500)

	c := f.pendingClaim(t, 750)
	f.reserve(t, c)

	n, err := f.v.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, claim.StatusReverted, f.claimStatus(t, c))
	assert.Equal(t, int64(0), f.reload(t).TotalWithdrawn)
}

func TestRecoverReleasedClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.at(1500)

	c := f.pendingClaim(t, 750)
	f.reserve(t, c)
	_, err := f.store.RecordWithdrawal(ctx, c.EmployeeAccount, c.VersionBefore+1, -c.Amount)
	require.NoError(t, err)

	_, err = f.v.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, claim.StatusReverted, f.claimStatus(t, c))
	assert.Equal(t, int64(0), f.reload(t).TotalWithdrawn)
}

func TestRecoverInconsistentClaimStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.at(1500)

	c := f.pendingClaim(t, 750)
	for v := int64(0); v < 3; v++ {
		_, err := f.store.RecordWithdrawal(ctx, c.EmployeeAccount, v, 10)
		require.NoError(t, err)
	}

	n, err := f.v.Recover(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, strings.Contains(err.Error(), c.ID.String()))
	assert.Equal(t, claim.StatusPending, f.claimStatus(t, c))
}

func TestRecoverStopsAtFirstFailureOnAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	created := time.Now().UTC()
	older := f.pendingClaimAt(t, 750, created)
	for v := int64(0); v < 3; v++ {
		_, err := f.store.RecordWithdrawal(ctx, older.EmployeeAccount, v, 10)
		require.NoError(t, err)
	}
	// Taken alone the newer claim would be reverted; behind an unresolved
	// claim it must wait.
	newer := f.pendingClaimAt(t, 100, created.Add(time.Second))

	n, err := f.v.Recover(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), older.ID.String())
	assert.Contains(t, err.Error(), "1 later claims")
	assert.Equal(t, claim.StatusPending, f.claimStatus(t, older))
	assert.Equal(t, claim.StatusPending, f.claimStatus(t, newer))
}

func TestClaimResolvesPendingFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	c := f.pendingClaim(t, 750)
	f.reserve(t, c)

	_, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	assert.ErrorIs(t, err, vesting.ErrNothingToClaim)
	assert.Equal(t, claim.StatusSettled, f.claimStatus(t, c))
	assert.Equal(t, int64(750), f.balance(t, f.alice))

	f.at(2000)
	next, err := f.v.Claim(ctx, f.emp.Address, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(250), next.Amount)
}

func TestStartRecoversPendingClaims(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, 1000)
	f.at(1500)

	c := f.pendingClaim(t, 750)
	f.reserve(t, c)

	restarted := vesting.New(f.store, vesting.WithGateway(f.gw), vesting.WithRecoveryConcurrency(2))
	require.NoError(t, restarted.Start(ctx))
	assert.Equal(t, claim.StatusSettled, f.claimStatus(t, c))
	assert.Equal(t, int64(750), f.balance(t, f.alice))
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

func TestCreateVestingAccount(t *testing.T) {
	ctx := context.Background()
	v := vesting.New(memory.New())
	require.NoError(t, v.Start(ctx))
	owner := address.Random()
	mint := address.Random()

	acct, err := v.CreateVestingAccount(ctx, owner, "  Acme  ", mint)
	require.NoError(t, err)
	assert.Equal(t, "Acme", acct.CompanyName)

	want, err := vesting.DeriveVestingAccount(v.Namespace(), owner, "Acme")
	require.NoError(t, err)
	assert.Equal(t, want.Address, acct.Address)
	assert.Equal(t, want.Bump, acct.Bump)

	treasury, err := vesting.DeriveTreasury(v.Namespace(), owner, "Acme")
	require.NoError(t, err)
	assert.Equal(t, treasury.Address, acct.TreasuryAddress)
	assert.NotEqual(t, acct.Address, acct.TreasuryAddress)

	_, err = v.CreateVestingAccount(ctx, owner, "Acme", mint)
	assert.ErrorIs(t, err, vesting.ErrDuplicateAccount)

	byCompany, err := v.GetVestingAccountByCompany(ctx, owner, "Acme")
	require.NoError(t, err)
	assert.Equal(t, acct.Address, byCompany.Address)

	tests := []struct {
		name  string
		owner address.Address
		cname string
		mint  address.Address
		field string
	}{
		{"empty name", owner, "   ", mint, "company_name"},
		{"long name", owner, strings.Repeat("x", account.MaxCompanyNameLen+1), mint, "company_name"},
		{"zero owner", address.Address{}, "Other", mint, "owner"},
		{"zero mint", owner, "Other", address.Address{}, "mint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.CreateVestingAccount(ctx, tt.owner, tt.cname, tt.mint)
			require.ErrorIs(t, err, vesting.ErrInvalidInput)
			var verr vesting.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err = v.CreateVestingAccount(ctx, owner, strings.Repeat("x", account.MaxCompanyNameLen), mint)
	assert.NoError(t, err)

	all, err := v.ListVestingAccounts(ctx, account.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNamespacesSeparateAddresses(t *testing.T) {
	ctx := context.Background()
	owner := address.Random()
	mint := address.Random()

	a, err := vesting.New(memory.New()).CreateVestingAccount(ctx, owner, "Acme", mint)
	require.NoError(t, err)
	b, err := vesting.New(memory.New(), vesting.WithNamespace("staging")).CreateVestingAccount(ctx, owner, "Acme", mint)
	require.NoError(t, err)
	assert.NotEqual(t, a.Address, b.Address)
}

func TestCreateEmployeeVesting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bob := address.Random()
	valid := schedule.Schedule{StartTime: 0, CliffTime: 10, EndTime: 20, TotalAmount: 5}

	_, err := f.v.CreateEmployeeVesting(ctx, bob, f.acct.Address, bob, valid)
	assert.ErrorIs(t, err, vesting.ErrUnauthorized)

	_, err = f.v.CreateEmployeeVesting(ctx, f.owner, address.Random(), bob, valid)
	assert.ErrorIs(t, err, vesting.ErrAccountNotFound)

	_, err = f.v.CreateEmployeeVesting(ctx, f.owner, f.acct.Address, f.alice, valid)
	assert.ErrorIs(t, err, vesting.ErrDuplicateAccount)

	for _, s := range []schedule.Schedule{
		{StartTime: 10, CliffTime: 5, EndTime: 20, TotalAmount: 5},
		{StartTime: 0, CliffTime: 30, EndTime: 20, TotalAmount: 5},
		{StartTime: 0, CliffTime: 10, EndTime: 20, TotalAmount: 0},
	} {
		_, err = f.v.CreateEmployeeVesting(ctx, f.owner, f.acct.Address, bob, s)
		assert.ErrorIs(t, err, vesting.ErrInvalidSchedule)
	}

	emp, err := f.v.CreateEmployeeVesting(ctx, f.owner, f.acct.Address, bob, valid)
	require.NoError(t, err)
	assert.Equal(t, int64(0), emp.TotalWithdrawn)

	list, err := f.v.ListEmployees(ctx, f.acct.Address, employee.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestListByBeneficiary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	other, err := f.v.CreateVestingAccount(ctx, f.owner, "Globex", f.mint)
	require.NoError(t, err)
	_, err = f.v.CreateEmployeeVesting(ctx, f.owner, other.Address, f.alice, schedule.Schedule{
		StartTime: 0, CliffTime: 0, EndTime: 10, TotalAmount: 10,
	})
	require.NoError(t, err)

	grants, err := f.v.ListByBeneficiary(ctx, f.alice, employee.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, grants, 2)

	none, err := f.v.ListByBeneficiary(ctx, address.Random(), employee.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		now       int64
		state     schedule.State
		vested    int64
		claimable int64
		canClaim  bool
	}{
		{-1, schedule.StateNotStarted, 0, 0, false},
		{0, schedule.StateCliffPeriod, 0, 0, false},
		{999, schedule.StateCliffPeriod, 0, 0, false},
		{1000, schedule.StateVestingInProgress, 500, 500, true},
		{1999, schedule.StateVestingInProgress, 999, 999, true},
		{2000, schedule.StateFullyVested, 1000, 1000, true},
	}
	for _, tt := range tests {
		f.at(tt.now)
		st, err := f.v.Status(ctx, f.emp.Address)
		require.NoError(t, err)
		assert.Equal(t, tt.state, st.State, "now=%d", tt.now)
		assert.Equal(t, tt.vested, st.Vested, "now=%d", tt.now)
		assert.Equal(t, tt.claimable, st.Claimable, "now=%d", tt.now)
		assert.Equal(t, tt.canClaim, st.CanClaim, "now=%d", tt.now)
		assert.Equal(t, tt.state.Label(), st.Label)
	}

	_, err := f.v.Status(ctx, address.Random())
	assert.True(t, vesting.IsNotFound(err))
}

func TestFundTreasury(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.v.FundTreasury(ctx, f.owner, f.acct.Address, 0)
	assert.ErrorIs(t, err, vesting.ErrInvalidInput)

	_, err = f.v.FundTreasury(ctx, f.owner, f.acct.Address, 10)
	assert.ErrorIs(t, err, vesting.ErrInsufficientFunds)

	_, err = f.v.FundTreasury(ctx, f.owner, address.Random(), 10)
	assert.ErrorIs(t, err, vesting.ErrAccountNotFound)

	require.NoError(t, f.gw.Deposit(ctx, f.owner, f.mint, 500))
	dep, err := f.v.FundTreasury(ctx, f.owner, f.acct.Address, 300)
	require.NoError(t, err)
	assert.Equal(t, id.PrefixDeposit, dep.Prefix())

	balance, err := f.v.TreasuryBalance(ctx, f.acct.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)
	assert.Equal(t, int64(200), f.balance(t, f.owner))
}
