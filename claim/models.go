// Package claim is the journal of claim attempts. A claim is written
// before any balance moves and records how the attempt ended.
package claim

import (
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/types"
)

// Status is the lifecycle of a claim.
type Status string

const (
	// StatusPending means the withdrawal may be reserved and the transfer
	// may or may not have happened. Recovery resolves it.
	StatusPending Status = "pending"
	// StatusSettled means the transfer happened and the withdrawal stands.
	StatusSettled Status = "settled"
	// StatusReverted means no tokens moved and no withdrawal stands.
	StatusReverted Status = "reverted"
)

// Claim records one withdrawal attempt. ID doubles as the transfer
// idempotency key.
type Claim struct {
	types.Entity
	ID              id.ClaimID      `json:"id"`
	EmployeeAccount address.Address `json:"employee_account"`
	VestingAccount  address.Address `json:"vesting_account"`
	Beneficiary     address.Address `json:"beneficiary"`
	Treasury        address.Address `json:"treasury"`
	Mint            address.Address `json:"mint"`
	Amount          int64           `json:"amount"`
	WithdrawnBefore int64           `json:"withdrawn_before"`
	VersionBefore   int64           `json:"version_before"`
	ClaimedAt       int64           `json:"claimed_at"`
	Status          Status          `json:"status"`
	Reason          string          `json:"reason,omitempty"`
}
