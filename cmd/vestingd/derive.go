package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/address"
)

var cmdDerive = &cobra.Command{
	Use:   "derive",
	Short: "Derive account addresses without touching any store",
}

var cmdDeriveAccount = &cobra.Command{
	Use:   "account <owner> <company name>",
	Short: "Derive a vesting account and its treasury",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := address.Parse(args[0])
		if err != nil {
			return fmt.Errorf("owner: %w", err)
		}
		ns := address.Namespace(flagMain.Namespace)
		acct, err := vesting.DeriveVestingAccount(ns, owner, args[1])
		if err != nil {
			return err
		}
		treasury, err := vesting.DeriveTreasury(ns, owner, args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]vesting.Derived{
			"vesting_account": acct,
			"treasury":        treasury,
		})
	},
}

var cmdDeriveEmployee = &cobra.Command{
	Use:   "employee <beneficiary> <vesting account>",
	Short: "Derive an employee account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		beneficiary, err := address.Parse(args[0])
		if err != nil {
			return fmt.Errorf("beneficiary: %w", err)
		}
		vestingAccount, err := address.Parse(args[1])
		if err != nil {
			return fmt.Errorf("vesting account: %w", err)
		}
		emp, err := vesting.DeriveEmployeeAccount(address.Namespace(flagMain.Namespace), beneficiary, vestingAccount)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]vesting.Derived{"employee_account": emp})
	},
}

func init() {
	cmdMain.AddCommand(cmdDerive)
	cmdDerive.AddCommand(cmdDeriveAccount, cmdDeriveEmployee)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
