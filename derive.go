package vesting

import (
	"fmt"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/employee"
)

// DefaultNamespace labels derivations when no namespace is configured.
const DefaultNamespace = "vesting"

// Derived is an address together with the bump that produced it.
type Derived struct {
	Address address.Address `json:"address"`
	Bump    uint8           `json:"bump"`
}

// DeriveVestingAccount returns the account address for (owner, companyName).
func DeriveVestingAccount(ns, owner address.Address, companyName string) (Derived, error) {
	return derive(ns, account.Seeds(owner, companyName))
}

// DeriveTreasury returns the treasury address for (owner, companyName).
func DeriveTreasury(ns, owner address.Address, companyName string) (Derived, error) {
	return derive(ns, account.TreasurySeeds(owner, companyName))
}

// DeriveEmployeeAccount returns the employee account address for
// (beneficiary, vestingAccount).
func DeriveEmployeeAccount(ns, beneficiary, vestingAccount address.Address) (Derived, error) {
	return derive(ns, employee.Seeds(beneficiary, vestingAccount))
}

func derive(ns address.Address, seeds [][]byte) (Derived, error) {
	a, bump, err := address.FindDerived(ns, seeds...)
	if err != nil {
		return Derived{}, fmt.Errorf("vesting: derive address: %w", err)
	}
	return Derived{Address: a, Bump: bump}, nil
}
