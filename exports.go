package vesting

import (
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/schedule"
	"github.com/xraph/vesting/types"
)

// Re-export common types for convenience so users don't have to import
// the leaf packages.

// Address is re-exported from address package.
type Address = address.Address

// Schedule is re-exported from schedule package.
type Schedule = schedule.Schedule

// State is re-exported from schedule package.
type State = schedule.State

// TokenAmount is re-exported from types package.
type TokenAmount = types.TokenAmount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export constructors
var (
	ParseAddress   = address.Parse
	NewTokenAmount = types.NewTokenAmount
	NewEntity      = types.NewEntity
)
