// Package employee holds per-employee vesting grants and their derived
// status view.
package employee

import (
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/schedule"
	"github.com/xraph/vesting/types"
)

// Seed prefixes the seeds of every employee account derivation.
const Seed = "employee_vesting"

// Account is one beneficiary's grant under a vesting account.
//
// Everything except TotalWithdrawn and Version is immutable. TotalWithdrawn
// stays within [0, TotalAmount]; Version changes on every withdrawal
// mutation and is the compare-and-swap token for RecordWithdrawal.
type Account struct {
	types.Entity
	Address        address.Address `json:"address"`
	Bump           uint8           `json:"bump"`
	Beneficiary    address.Address `json:"beneficiary"`
	VestingAccount address.Address `json:"vesting_account"`
	StartTime      int64           `json:"start_time"`
	CliffTime      int64           `json:"cliff_time"`
	EndTime        int64           `json:"end_time"`
	TotalAmount    int64           `json:"total_amount"`
	TotalWithdrawn int64           `json:"total_withdrawn"`
	Version        int64           `json:"version"`
}

// Seeds returns the derivation seeds of an employee account address.
func Seeds(beneficiary, vestingAccount address.Address) [][]byte {
	return [][]byte{[]byte(Seed), beneficiary.Bytes(), vestingAccount.Bytes()}
}

// Schedule returns the account's vesting schedule.
func (a *Account) Schedule() schedule.Schedule {
	return schedule.Schedule{
		StartTime:   a.StartTime,
		CliffTime:   a.CliffTime,
		EndTime:     a.EndTime,
		TotalAmount: a.TotalAmount,
	}
}

// Vested returns the vested amount at now.
func (a *Account) Vested(now int64) int64 {
	return a.Schedule().VestedAmount(now)
}

// Claimable returns the amount a claim at now would transfer.
func (a *Account) Claimable(now int64) int64 {
	return a.Schedule().Claimable(a.TotalWithdrawn, now)
}

// State returns the derived lifecycle state at now.
func (a *Account) State(now int64) schedule.State {
	return a.Schedule().State(a.TotalWithdrawn, now)
}

// Status is the read-side view of an account at one instant. It is what a
// presentation layer renders; it must not derive vesting state itself.
type Status struct {
	Address     address.Address `json:"address"`
	Beneficiary address.Address `json:"beneficiary"`
	State       schedule.State  `json:"state"`
	Label       string          `json:"label"`
	Tone        schedule.Tone   `json:"tone"`
	Vested      int64           `json:"vested"`
	Claimable   int64           `json:"claimable"`
	Withdrawn   int64           `json:"withdrawn"`
	TotalAmount int64           `json:"total_amount"`
	CanClaim    bool            `json:"can_claim"`
	AsOf        int64           `json:"as_of"`
}

// StatusAt derives the status of a at now.
func StatusAt(a *Account, now int64) *Status {
	state := a.State(now)
	claimable := a.Claimable(now)
	return &Status{
		Address:     a.Address,
		Beneficiary: a.Beneficiary,
		State:       state,
		Label:       state.Label(),
		Tone:        state.Tone(),
		Vested:      a.Vested(now),
		Claimable:   claimable,
		Withdrawn:   a.TotalWithdrawn,
		TotalAmount: a.TotalAmount,
		CanClaim:    state.AllowsClaim() && claimable > 0,
		AsOf:        now,
	}
}
