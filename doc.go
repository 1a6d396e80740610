// Package vesting provides a token-vesting ledger and claim authorizer for
// Go applications.
//
// Vesting is designed as a library, not a service. A company creates a
// vesting account with a treasury, grants employees linear vesting
// schedules with a cliff, and employees claim what has vested. It provides:
//
//   - Deterministic account and treasury addresses derived from their seeds
//   - Overflow-safe linear vesting with a cliff gate
//   - Claims that either transfer and record, or change nothing
//   - A claim journal with crash recovery
//   - Pluggable stores (memory, PostgreSQL, SQLite, MongoDB)
//   - Pluggable transfer gateways (memory, Redis)
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/vesting"
//	    "github.com/xraph/vesting/store/memory"
//	)
//
//	v := vesting.New(memory.New())
//	if err := v.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Stop()
//
// # Core Concepts
//
// A vesting account is owned by one address and identified by
// (owner, company name):
//
//	acct, err := v.CreateVestingAccount(ctx, owner, "Acme", mint)
//
// The owner grants a schedule to a beneficiary:
//
//	emp, err := v.CreateEmployeeVesting(ctx, owner, acct.Address, alice, schedule.Schedule{
//	    StartTime:   start,
//	    CliffTime:   start + 365*86400,
//	    EndTime:     start + 4*365*86400,
//	    TotalAmount: 1_000_000,
//	})
//
// The beneficiary claims whatever is claimable at the current time:
//
//	c, err := v.Claim(ctx, emp.Address, alice)
//
// # Vesting
//
// Nothing vests before the cliff. Between cliff and end the vested amount
// is TotalAmount * (now - start) / (end - start), truncated, computed in
// 128-bit intermediate precision. At or after end everything is vested.
//
// # Claims
//
// Each claim is journaled before anything moves. The withdrawal is
// reserved with a compare-and-swap on the employee version, the transfer
// is executed with the claim ID as idempotency key, and the claim is then
// settled. A failed transfer releases the reservation. Claims left pending
// by a crash are resolved on Start.
package vesting
