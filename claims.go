package vesting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/gateway"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/types"
)

// ──────────────────────────────────────────────────
// Claims
// ──────────────────────────────────────────────────

// Claim withdraws everything currently claimable on an employee account
// and transfers it from the company treasury to the beneficiary.
//
// The requester must be the account's beneficiary. On success the settled
// claim is returned and its Amount is what was transferred. When the
// transfer is refused the withdrawal is released and the ledger is
// unchanged. When the outcome cannot be determined the claim is left
// pending and the next claim or Recover finishes it.
func (e *Engine) Claim(ctx context.Context, employeeAccount, requester address.Address) (*claim.Claim, error) {
	now := e.now()

	emp, err := e.store.GetEmployeeAccount(ctx, employeeAccount)
	if err != nil {
		return nil, e.reject(ctx, employeeAccount, requester, err)
	}
	if requester != emp.Beneficiary {
		return nil, e.reject(ctx, employeeAccount, requester,
			fmt.Errorf("%w: %s is not the beneficiary of %s", ErrUnauthorized, requester, emp.Address))
	}
	va, err := e.store.GetVestingAccount(ctx, emp.VestingAccount)
	if err != nil {
		return nil, e.reject(ctx, employeeAccount, requester, err)
	}

	unlock := e.locks.Lock(emp.Address)
	defer unlock()

	if err := e.resolvePending(ctx, emp.Address); err != nil {
		return nil, e.reject(ctx, employeeAccount, requester, err)
	}

	// Re-read under the lock; the first read only authorized the caller.
	emp, err = e.store.GetEmployeeAccount(ctx, emp.Address)
	if err != nil {
		return nil, e.reject(ctx, employeeAccount, requester, err)
	}

	amount := emp.Claimable(now)
	if amount <= 0 {
		return nil, e.reject(ctx, employeeAccount, requester,
			fmt.Errorf("%w: %s state %s", ErrNothingToClaim, emp.Address, emp.State(now)))
	}

	return e.execute(ctx, va, emp, amount, now)
}

// ClaimFor claims on behalf of beneficiary under vestingAccount. The
// employee account is derived, not looked up.
func (e *Engine) ClaimFor(ctx context.Context, vestingAccount, beneficiary address.Address) (*claim.Claim, error) {
	derived, err := DeriveEmployeeAccount(e.namespace, beneficiary, vestingAccount)
	if err != nil {
		return nil, err
	}
	return e.Claim(ctx, derived.Address, beneficiary)
}

// execute journals, reserves, transfers and settles one claim. The caller
// holds the employee lock.
//
// Once the claim is journaled every step runs detached from ctx, and any
// failure whose outcome is unknown leaves the claim pending for
// resolvePending or Recover to finish.
func (e *Engine) execute(ctx context.Context, va *account.VestingAccount, emp *employee.Account, amount, now int64) (*claim.Claim, error) {
	start := time.Now()

	c := &claim.Claim{
		Entity:          types.NewEntity(),
		ID:              id.NewClaimID(),
		EmployeeAccount: emp.Address,
		VestingAccount:  va.Address,
		Beneficiary:     emp.Beneficiary,
		Treasury:        va.TreasuryAddress,
		Mint:            va.Mint,
		Amount:          amount,
		WithdrawnBefore: emp.TotalWithdrawn,
		VersionBefore:   emp.Version,
		ClaimedAt:       now,
		Status:          claim.StatusPending,
	}
	if err := e.store.CreateClaim(ctx, c); err != nil {
		return nil, err
	}
	wctx := context.WithoutCancel(ctx)

	if _, err := e.store.RecordWithdrawal(wctx, emp.Address, emp.Version, amount); err != nil {
		if errors.Is(err, ErrConcurrentClaim) || errors.Is(err, ErrWithdrawalBound) {
			e.resolve(wctx, c, claim.StatusReverted, err.Error())
			e.plugins.EmitClaimReverted(ctx, c, err)
			return nil, err
		}
		return nil, e.leavePending(c, "reserve", err)
	}

	switch err := e.transfer(wctx, c); {
	case err == nil:
	case gateway.IsDefinitive(err):
		return nil, e.release(wctx, c, err)
	default:
		return nil, e.leavePending(c, "transfer", transferError(err))
	}

	// Tokens have moved. A failed settle leaves the claim pending and
	// recovery settles it by replaying the idempotent transfer.
	e.resolve(wctx, c, claim.StatusSettled, "")

	elapsed := time.Since(start)
	e.logger.Info("claim settled",
		"claim_id", c.ID.String(),
		"employee_account", c.EmployeeAccount,
		"beneficiary", c.Beneficiary,
		"amount", c.Amount,
		"elapsed", elapsed,
	)
	e.plugins.EmitClaimSettled(ctx, c, elapsed)
	return c, nil
}

// transfer sends the claim's transfer, replaying it once with the same ID
// when the first outcome is unknown.
func (e *Engine) transfer(ctx context.Context, c *claim.Claim) error {
	req := transferFor(c)
	err := e.gateway.Transfer(ctx, req)
	if err == nil || gateway.IsDefinitive(err) {
		return err
	}
	e.logger.Warn("transfer outcome unknown, replaying",
		"claim_id", c.ID.String(),
		"error", err,
	)
	return e.gateway.Transfer(ctx, req)
}

// leavePending reports a claim whose outcome is unknown. The claim keeps
// its reservation state as-is and is finished by recovery.
func (e *Engine) leavePending(c *claim.Claim, step string, err error) error {
	e.logger.Error("claim outcome unknown, left pending",
		"claim_id", c.ID.String(),
		"employee_account", c.EmployeeAccount,
		"step", step,
		"error", err,
	)
	return fmt.Errorf("vesting: %s claim %s: left pending: %w", step, c.ID, err)
}

// release undoes the reservation of a claim whose transfer definitely
// failed and marks it reverted. If the release itself fails the claim
// stays pending.
func (e *Engine) release(ctx context.Context, c *claim.Claim, cause error) error {
	result := transferError(cause)
	rctx := context.WithoutCancel(ctx)

	if _, err := e.store.RecordWithdrawal(rctx, c.EmployeeAccount, c.VersionBefore+1, -c.Amount); err != nil {
		e.logger.Error("claim release failed, left pending",
			"claim_id", c.ID.String(),
			"employee_account", c.EmployeeAccount,
			"error", err,
		)
		return errors.Join(result, fmt.Errorf("vesting: release claim %s: %w", c.ID, err))
	}

	e.resolve(rctx, c, claim.StatusReverted, cause.Error())
	e.logger.Warn("claim reverted",
		"claim_id", c.ID.String(),
		"employee_account", c.EmployeeAccount,
		"amount", c.Amount,
		"error", cause,
	)
	e.plugins.EmitClaimReverted(ctx, c, result)
	return result
}

// resolve records the outcome of a pending claim. A failure is logged and
// leaves the claim for recovery.
func (e *Engine) resolve(ctx context.Context, c *claim.Claim, status claim.Status, reason string) bool {
	if err := e.store.ResolveClaim(ctx, c.ID, status, reason); err != nil {
		e.logger.Error("resolve claim failed",
			"claim_id", c.ID.String(),
			"status", string(status),
			"error", err,
		)
		return false
	}
	c.Status = status
	c.Reason = reason
	c.Touch()
	return true
}

func (e *Engine) reject(ctx context.Context, employeeAccount, requester address.Address, err error) error {
	e.logger.Debug("claim rejected",
		"employee_account", employeeAccount,
		"requester", requester,
		"error", err,
	)
	e.plugins.EmitClaimRejected(ctx, employeeAccount, requester, err)
	return err
}

func transferFor(c *claim.Claim) gateway.TransferRequest {
	return gateway.TransferRequest{
		ID:     c.ID.String(),
		From:   c.Treasury,
		To:     c.Beneficiary,
		Mint:   c.Mint,
		Amount: c.Amount,
	}
}

// ──────────────────────────────────────────────────
// Recovery
// ──────────────────────────────────────────────────

// Recover resolves every pending claim left behind by an interrupted
// run. Claims of one employee account are resolved oldest first in a
// single goroutine; the first failure stops that account and its later
// claims stay pending. It returns how many claims were resolved; failures
// are collected into a MultiError.
//
// Recovery must finish before any other process starts serving claims
// against the same store.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	pending, err := e.store.ListPendingClaims(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var (
		order  []address.Address
		groups = make(map[address.Address][]*claim.Claim)
	)
	for _, c := range pending {
		if _, ok := groups[c.EmployeeAccount]; !ok {
			order = append(order, c.EmployeeAccount)
		}
		groups[c.EmployeeAccount] = append(groups[c.EmployeeAccount], c)
	}

	var (
		mu        sync.Mutex
		errs      MultiError
		recovered int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.recoveryConcurrency)
	for _, addr := range order {
		claims := groups[addr]
		g.Go(func() error {
			unlock := e.locks.Lock(addr)
			defer unlock()

			n, err := e.recoverAccount(gctx, claims)

			mu.Lock()
			defer mu.Unlock()
			recovered += n
			if err != nil {
				errs.Add(err)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines report through errs

	e.logger.Info("claim recovery finished",
		"pending", len(pending),
		"recovered", recovered,
		"failed", len(errs.Errors),
	)
	return recovered, errs.ErrOrNil()
}

// recoverAccount resolves the pending claims of one employee account in
// order. The caller holds the employee lock.
func (e *Engine) recoverAccount(ctx context.Context, claims []*claim.Claim) (int, error) {
	for i, c := range claims {
		if err := e.recoverClaim(ctx, c); err != nil {
			err = fmt.Errorf("vesting: recover claim %s: %w", c.ID, err)
			if skipped := len(claims) - i - 1; skipped > 0 {
				err = fmt.Errorf("%w (%d later claims on %s skipped)", err, skipped, c.EmployeeAccount)
			}
			return i, err
		}
	}
	return len(claims), nil
}

// resolvePending settles or reverts the pending claims of one employee
// account, oldest first. The caller holds the employee lock.
func (e *Engine) resolvePending(ctx context.Context, employeeAccount address.Address) error {
	pending, err := e.store.ListClaims(ctx, employeeAccount, claim.ListOpts{Status: claim.StatusPending})
	if err != nil {
		return err
	}
	for i := len(pending) - 1; i >= 0; i-- {
		if err := e.recoverClaim(ctx, pending[i]); err != nil {
			return fmt.Errorf("%w: unresolved claim %s: %w", ErrConcurrentClaim, pending[i].ID, err)
		}
	}
	return nil
}

// recoverClaim decides the fate of one pending claim from how far the
// employee version has moved since the claim was written:
//
//	0  the reservation never applied, so the claim is reverted
//	1  the reservation stands, so the transfer is replayed
//	2  the reservation was released, so the claim is reverted
//
// Pending claims of an account are always resolved before a new one is
// written, so no other claim can account for the difference.
func (e *Engine) recoverClaim(ctx context.Context, c *claim.Claim) error {
	emp, err := e.store.GetEmployeeAccount(ctx, c.EmployeeAccount)
	if err != nil {
		return err
	}

	delta := emp.Version - c.VersionBefore
	switch {
	case delta == 0 && emp.TotalWithdrawn == c.WithdrawnBefore:
		if err := e.store.ResolveClaim(ctx, c.ID, claim.StatusReverted, "reservation never applied"); err != nil {
			return err
		}
		c.Status = claim.StatusReverted

	case delta == 1 && emp.TotalWithdrawn == c.WithdrawnBefore+c.Amount:
		if err := e.transfer(ctx, c); err != nil {
			if !gateway.IsDefinitive(err) {
				return fmt.Errorf("transfer outcome unknown: %w", err)
			}
			_ = e.release(ctx, c, err) //nolint:errcheck // outcome is read from c.Status
			if c.Status != claim.StatusReverted {
				return fmt.Errorf("release after failed replay: %w", err)
			}
			break
		}
		if err := e.store.ResolveClaim(ctx, c.ID, claim.StatusSettled, ""); err != nil {
			return err
		}
		c.Status = claim.StatusSettled

	case delta == 2 && emp.TotalWithdrawn == c.WithdrawnBefore:
		if err := e.store.ResolveClaim(ctx, c.ID, claim.StatusReverted, "reservation released"); err != nil {
			return err
		}
		c.Status = claim.StatusReverted

	default:
		return fmt.Errorf("vesting: claim %s inconsistent with account %s (version %d -> %d, withdrawn %d -> %d)",
			c.ID, emp.Address, c.VersionBefore, emp.Version, c.WithdrawnBefore, emp.TotalWithdrawn)
	}

	e.logger.Info("claim recovered",
		"claim_id", c.ID.String(),
		"employee_account", c.EmployeeAccount,
		"status", string(c.Status),
	)
	e.plugins.EmitClaimRecovered(ctx, c)
	return nil
}
