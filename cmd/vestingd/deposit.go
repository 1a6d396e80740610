package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xraph/vesting/address"
)

var cmdDeposit = &cobra.Command{
	Use:   "deposit <owner> <mint> <amount>",
	Short: "Credit tokens to an owner in the Redis bank (development only)",
	Args:  cobra.ExactArgs(3),
	RunE:  runDeposit,
}

func init() {
	cmdMain.AddCommand(cmdDeposit)
}

func runDeposit(cmd *cobra.Command, args []string) error {
	if flagMain.RedisAddr == "" {
		return fmt.Errorf("deposit needs --redis-addr; the in-memory bank does not outlive the command")
	}
	owner, err := address.Parse(args[0])
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	mint, err := address.Parse(args[1])
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	amount, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || amount <= 0 {
		return fmt.Errorf("amount must be a positive integer, got %q", args[2])
	}

	ctx := cmd.Context()
	b, closeBank, err := openBank(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeBank() }()

	if err := b.Deposit(ctx, owner, mint, amount); err != nil {
		return err
	}
	balance, err := b.Balance(ctx, owner, mint)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{"owner": owner, "mint": mint, "balance": balance})
}
