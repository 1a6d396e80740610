// Package account holds the company-level vesting account: the owner,
// the token mint and the treasury that funds every employee grant.
package account

import (
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/types"
)

// MaxCompanyNameLen is the longest company name accepted. The name is a
// seed of the account derivation, so it is bounded by address.MaxSeedLen.
const MaxCompanyNameLen = address.MaxSeedLen

// TreasurySeed prefixes the seeds of every treasury derivation.
const TreasurySeed = "vesting_treasury"

// VestingAccount is one company's vesting program. All fields are
// immutable after creation.
type VestingAccount struct {
	types.Entity
	Address         address.Address `json:"address"`
	Bump            uint8           `json:"bump"`
	Owner           address.Address `json:"owner"`
	CompanyName     string          `json:"company_name"`
	Mint            address.Address `json:"mint"`
	TreasuryAddress address.Address `json:"treasury_address"`
	TreasuryBump    uint8           `json:"treasury_bump"`
}

// Seeds returns the derivation seeds of the account address.
func Seeds(owner address.Address, companyName string) [][]byte {
	return [][]byte{owner.Bytes(), []byte(companyName)}
}

// TreasurySeeds returns the derivation seeds of the treasury address.
func TreasurySeeds(owner address.Address, companyName string) [][]byte {
	return [][]byte{[]byte(TreasurySeed), owner.Bytes(), []byte(companyName)}
}
