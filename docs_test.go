package vesting_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/gateway/memory"
	"github.com/xraph/vesting/schedule"
	memstore "github.com/xraph/vesting/store/memory"
	"github.com/xraph/vesting/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		bank := memory.New()
		clock := vesting.UnixClock(1_500)

		v := vesting.New(memstore.New(),
			vesting.WithLogger(slog.Default()),
			vesting.WithGateway(bank),
			vesting.WithClock(clock),
		)

		ctx := context.Background()
		if err := v.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer v.Stop()

		owner := address.Random()
		alice := address.Random()
		mint := address.Random()

		acct, err := v.CreateVestingAccount(ctx, owner, "Acme", mint)
		if err != nil {
			t.Fatal(err)
		}

		if err := bank.Deposit(ctx, owner, mint, 1_000); err != nil {
			t.Fatal(err)
		}
		if _, err := v.FundTreasury(ctx, owner, acct.Address, 1_000); err != nil {
			t.Fatal(err)
		}

		emp, err := v.CreateEmployeeVesting(ctx, owner, acct.Address, alice, schedule.Schedule{
			StartTime:   0,
			CliffTime:   1_000,
			EndTime:     2_000,
			TotalAmount: 1_000,
		})
		if err != nil {
			t.Fatal(err)
		}

		c, err := v.Claim(ctx, emp.Address, alice)
		if err != nil {
			t.Fatal(err)
		}
		if c.Amount != 750 {
			t.Fatalf("claimed %d, want 750", c.Amount)
		}
	})

	t.Run("TokenAmountExamples", func(t *testing.T) {
		amt := types.NewTokenAmount(1_500_000, 6)
		if got := amt.String(); got != "1.500000" {
			t.Fatalf("String() = %q", got)
		}
	})
}
