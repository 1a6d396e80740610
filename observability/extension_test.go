package observability_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/address"
	gwmemory "github.com/xraph/vesting/gateway/memory"
	"github.com/xraph/vesting/observability"
	"github.com/xraph/vesting/schedule"
	"github.com/xraph/vesting/store/memory"
)

func value(c observability.Counter) float64 {
	return testutil.ToFloat64(c.(prometheus.Collector))
}

func TestMetricsFollowEngine(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	bank := gwmemory.New()

	v := vesting.New(memory.New(),
		vesting.WithGateway(bank),
		vesting.WithClock(vesting.UnixClock(1500)),
		vesting.WithPlugin(metrics),
	)
	require.NoError(t, v.Start(ctx))

	owner, alice, mint := address.Random(), address.Random(), address.Random()
	acct, err := v.CreateVestingAccount(ctx, owner, "Acme", mint)
	require.NoError(t, err)
	emp, err := v.CreateEmployeeVesting(ctx, owner, acct.Address, alice, schedule.Schedule{
		StartTime: 0, CliffTime: 1000, EndTime: 2000, TotalAmount: 1000,
	})
	require.NoError(t, err)

	// Unfunded treasury reverts the claim.
	_, err = v.Claim(ctx, emp.Address, alice)
	require.ErrorIs(t, err, vesting.ErrInsufficientFunds)

	require.NoError(t, bank.Deposit(ctx, owner, mint, 1000))
	_, err = v.FundTreasury(ctx, owner, acct.Address, 1000)
	require.NoError(t, err)

	_, err = v.Claim(ctx, emp.Address, alice)
	require.NoError(t, err)
	_, err = v.Claim(ctx, emp.Address, alice)
	require.ErrorIs(t, err, vesting.ErrNothingToClaim)
	_, err = v.Claim(ctx, emp.Address, owner)
	require.ErrorIs(t, err, vesting.ErrUnauthorized)

	assert.InDelta(t, 1, value(metrics.VestingAccountCreated), 0)
	assert.InDelta(t, 1000, value(metrics.GrantedAmount), 0)
	assert.InDelta(t, 1000, value(metrics.FundedAmount), 0)
	assert.InDelta(t, 1, value(metrics.ClaimSettled), 0)
	assert.InDelta(t, 750, value(metrics.ClaimedAmount), 0)
	assert.InDelta(t, 1, value(metrics.ClaimReverted), 0)
	assert.InDelta(t, 1, value(metrics.ClaimNothingDue), 0)
	assert.InDelta(t, 1, value(metrics.ClaimUnauthorized), 0)
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	a := f.Counter("vesting.claim.settled")
	b := f.Counter("vesting.claim.settled")
	assert.Same(t, a, b)

	// A second factory on the same registry shares the collector.
	other := observability.NewPrometheusFactory(reg).Counter("vesting.claim.settled")
	other.Inc()
	assert.InDelta(t, 1, value(a), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "vesting_claim_settled", families[0].GetName())
}
