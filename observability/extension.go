// Package observability provides a metrics extension for Vesting that
// records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                   = (*MetricsExtension)(nil)
	_ plugin.OnInit                   = (*MetricsExtension)(nil)
	_ plugin.OnVestingAccountCreated  = (*MetricsExtension)(nil)
	_ plugin.OnEmployeeVestingCreated = (*MetricsExtension)(nil)
	_ plugin.OnTreasuryFunded         = (*MetricsExtension)(nil)
	_ plugin.OnClaimSettled           = (*MetricsExtension)(nil)
	_ plugin.OnClaimRejected          = (*MetricsExtension)(nil)
	_ plugin.OnClaimReverted          = (*MetricsExtension)(nil)
	_ plugin.OnClaimRecovered         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Vesting plugin to automatically track claim metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Account metrics
	VestingAccountCreated  Counter
	EmployeeVestingCreated Counter
	GrantedAmount          Counter

	// Treasury metrics
	TreasuryFunded Counter
	FundedAmount   Counter

	// Claim metrics
	ClaimSettled      Counter
	ClaimedAmount     Counter
	ClaimLatency      Histogram
	ClaimSize         Histogram
	ClaimUnauthorized Counter
	ClaimNothingDue   Counter
	ClaimRejected     Counter
	ClaimReverted     Counter
	ClaimRecovered    Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Account metrics
		VestingAccountCreated:  factory.Counter("vesting.account.created"),
		EmployeeVestingCreated: factory.Counter("vesting.employee.created"),
		GrantedAmount:          factory.Counter("vesting.employee.granted_amount"),

		// Treasury metrics
		TreasuryFunded: factory.Counter("vesting.treasury.funded"),
		FundedAmount:   factory.Counter("vesting.treasury.funded_amount"),

		// Claim metrics
		ClaimSettled:      factory.Counter("vesting.claim.settled"),
		ClaimedAmount:     factory.Counter("vesting.claim.amount"),
		ClaimLatency:      factory.Histogram("vesting.claim.latency_ms"),
		ClaimSize:         factory.Histogram("vesting.claim.size"),
		ClaimUnauthorized: factory.Counter("vesting.claim.unauthorized"),
		ClaimNothingDue:   factory.Counter("vesting.claim.nothing_due"),
		ClaimRejected:     factory.Counter("vesting.claim.rejected"),
		ClaimReverted:     factory.Counter("vesting.claim.reverted"),
		ClaimRecovered:    factory.Counter("vesting.claim.recovered"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnVestingAccountCreated implements plugin.OnVestingAccountCreated.
func (m *MetricsExtension) OnVestingAccountCreated(_ context.Context, _ *account.VestingAccount) error {
	m.VestingAccountCreated.Inc()
	return nil
}

// OnEmployeeVestingCreated implements plugin.OnEmployeeVestingCreated.
func (m *MetricsExtension) OnEmployeeVestingCreated(_ context.Context, emp *employee.Account) error {
	m.EmployeeVestingCreated.Inc()
	m.GrantedAmount.Add(float64(emp.TotalAmount))
	return nil
}

// OnTreasuryFunded implements plugin.OnTreasuryFunded.
func (m *MetricsExtension) OnTreasuryFunded(_ context.Context, _ *account.VestingAccount, _ address.Address, amount int64) error {
	m.TreasuryFunded.Inc()
	m.FundedAmount.Add(float64(amount))
	return nil
}

// ──────────────────────────────────────────────────
// Claim hooks
// ──────────────────────────────────────────────────

// OnClaimSettled implements plugin.OnClaimSettled.
func (m *MetricsExtension) OnClaimSettled(_ context.Context, c *claim.Claim, elapsed time.Duration) error {
	m.ClaimSettled.Inc()
	m.ClaimedAmount.Add(float64(c.Amount))
	m.ClaimSize.Observe(float64(c.Amount))
	m.ClaimLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnClaimRejected implements plugin.OnClaimRejected.
func (m *MetricsExtension) OnClaimRejected(_ context.Context, _, _ address.Address, err error) error {
	switch {
	case errors.Is(err, vesting.ErrUnauthorized):
		m.ClaimUnauthorized.Inc()
	case errors.Is(err, vesting.ErrNothingToClaim):
		m.ClaimNothingDue.Inc()
	default:
		m.ClaimRejected.Inc()
	}
	return nil
}

// OnClaimReverted implements plugin.OnClaimReverted.
func (m *MetricsExtension) OnClaimReverted(_ context.Context, _ *claim.Claim, _ error) error {
	m.ClaimReverted.Inc()
	return nil
}

// OnClaimRecovered implements plugin.OnClaimRecovered.
func (m *MetricsExtension) OnClaimRecovered(_ context.Context, _ *claim.Claim) error {
	m.ClaimRecovered.Inc()
	return nil
}
