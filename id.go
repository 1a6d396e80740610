package vesting

import "github.com/xraph/vesting/id"

// ID is the identifier type for journal entries.
type ID = id.ID

// ClaimID identifies a claim and doubles as its transfer idempotency key.
type ClaimID = id.ClaimID

// DepositID identifies a treasury funding transfer.
type DepositID = id.DepositID
