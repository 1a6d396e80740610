// Package plugin provides an extensible plugin system for Vesting.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnVestingAccountCreated is called after a company vesting account is stored.
type OnVestingAccountCreated interface {
	Plugin
	OnVestingAccountCreated(ctx context.Context, acct *account.VestingAccount) error
}

// OnEmployeeVestingCreated is called after an employee grant is stored.
type OnEmployeeVestingCreated interface {
	Plugin
	OnEmployeeVestingCreated(ctx context.Context, emp *employee.Account) error
}

// OnTreasuryFunded is called after tokens move into a treasury.
type OnTreasuryFunded interface {
	Plugin
	OnTreasuryFunded(ctx context.Context, acct *account.VestingAccount, funder address.Address, amount int64) error
}

// ──────────────────────────────────────────────────
// Claim hooks
// ──────────────────────────────────────────────────

// OnClaimSettled is called after a claim transferred tokens.
type OnClaimSettled interface {
	Plugin
	OnClaimSettled(ctx context.Context, c *claim.Claim, elapsed time.Duration) error
}

// OnClaimRejected is called when a claim is refused before any state
// changes: unauthorized, nothing to claim, or unknown account.
type OnClaimRejected interface {
	Plugin
	OnClaimRejected(ctx context.Context, employeeAccount, requester address.Address, err error) error
}

// OnClaimReverted is called when a claim's transfer failed and its
// reservation was released.
type OnClaimReverted interface {
	Plugin
	OnClaimReverted(ctx context.Context, c *claim.Claim, err error) error
}

// OnClaimRecovered is called for every pending claim resolved at startup.
type OnClaimRecovered interface {
	Plugin
	OnClaimRecovered(ctx context.Context, c *claim.Claim) error
}
