// Package audithook bridges vesting lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit library directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                   = (*Extension)(nil)
	_ plugin.OnVestingAccountCreated  = (*Extension)(nil)
	_ plugin.OnEmployeeVestingCreated = (*Extension)(nil)
	_ plugin.OnTreasuryFunded         = (*Extension)(nil)
	_ plugin.OnClaimSettled           = (*Extension)(nil)
	_ plugin.OnClaimRejected          = (*Extension)(nil)
	_ plugin.OnClaimReverted          = (*Extension)(nil)
	_ plugin.OnClaimRecovered         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges vesting lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnVestingAccountCreated implements plugin.OnVestingAccountCreated.
func (e *Extension) OnVestingAccountCreated(ctx context.Context, acct *account.VestingAccount) error {
	return e.record(ctx, ActionVestingAccountCreated, SeverityInfo, OutcomeSuccess,
		ResourceVestingAccount, acct.Address.String(), CategoryAccount, nil,
		"owner", acct.Owner.String(),
		"company_name", acct.CompanyName,
		"mint", acct.Mint.String(),
		"treasury", acct.TreasuryAddress.String(),
	)
}

// OnEmployeeVestingCreated implements plugin.OnEmployeeVestingCreated.
func (e *Extension) OnEmployeeVestingCreated(ctx context.Context, emp *employee.Account) error {
	return e.record(ctx, ActionEmployeeVestingCreated, SeverityInfo, OutcomeSuccess,
		ResourceEmployee, emp.Address.String(), CategoryAccount, nil,
		"vesting_account", emp.VestingAccount.String(),
		"beneficiary", emp.Beneficiary.String(),
		"start_time", emp.StartTime,
		"cliff_time", emp.CliffTime,
		"end_time", emp.EndTime,
		"total_amount", emp.TotalAmount,
	)
}

// OnTreasuryFunded implements plugin.OnTreasuryFunded.
func (e *Extension) OnTreasuryFunded(ctx context.Context, acct *account.VestingAccount, funder address.Address, amount int64) error {
	return e.record(ctx, ActionTreasuryFunded, SeverityInfo, OutcomeSuccess,
		ResourceTreasury, acct.TreasuryAddress.String(), CategoryTreasury, nil,
		"vesting_account", acct.Address.String(),
		"funder", funder.String(),
		"amount", amount,
	)
}

// ──────────────────────────────────────────────────
// Claim hooks
// ──────────────────────────────────────────────────

// OnClaimSettled implements plugin.OnClaimSettled.
func (e *Extension) OnClaimSettled(ctx context.Context, c *claim.Claim, elapsed time.Duration) error {
	return e.record(ctx, ActionClaimSettled, SeverityInfo, OutcomeSuccess,
		ResourceClaim, c.ID.String(), CategoryClaim, nil,
		"employee_account", c.EmployeeAccount.String(),
		"beneficiary", c.Beneficiary.String(),
		"amount", c.Amount,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnClaimRejected implements plugin.OnClaimRejected.
func (e *Extension) OnClaimRejected(ctx context.Context, employeeAccount, requester address.Address, err error) error {
	category := CategoryClaim
	if errors.Is(err, vesting.ErrUnauthorized) {
		category = CategoryAccess
	}
	return e.record(ctx, ActionClaimRejected, SeverityWarning, OutcomeFailure,
		ResourceEmployee, employeeAccount.String(), category, err,
		"requester", requester.String(),
	)
}

// OnClaimReverted implements plugin.OnClaimReverted.
func (e *Extension) OnClaimReverted(ctx context.Context, c *claim.Claim, err error) error {
	return e.record(ctx, ActionClaimReverted, SeverityError, OutcomeFailure,
		ResourceClaim, c.ID.String(), CategoryClaim, err,
		"employee_account", c.EmployeeAccount.String(),
		"amount", c.Amount,
	)
}

// OnClaimRecovered implements plugin.OnClaimRecovered.
func (e *Extension) OnClaimRecovered(ctx context.Context, c *claim.Claim) error {
	outcome := OutcomeSuccess
	if c.Status != claim.StatusSettled {
		outcome = OutcomePartial
	}
	return e.record(ctx, ActionClaimRecovered, SeverityWarning, outcome,
		ResourceClaim, c.ID.String(), CategoryClaim, nil,
		"employee_account", c.EmployeeAccount.String(),
		"status", string(c.Status),
		"amount", c.Amount,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
