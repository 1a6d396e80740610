package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/types"
)

// ==================== Vesting account models ====================

type vestingAccountModel struct {
	grove.BaseModel `grove:"table:vesting_accounts"`

	Address         string    `grove:"address,pk" bson:"_id"`
	Bump            int16     `grove:"bump" bson:"bump"`
	Owner           string    `grove:"owner" bson:"owner"`
	CompanyName     string    `grove:"company_name" bson:"company_name"`
	Mint            string    `grove:"mint" bson:"mint"`
	TreasuryAddress string    `grove:"treasury_address" bson:"treasury_address"`
	TreasuryBump    int16     `grove:"treasury_bump" bson:"treasury_bump"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at" bson:"updated_at"`
}

func toVestingAccountModel(a *account.VestingAccount) *vestingAccountModel {
	return &vestingAccountModel{
		Address:         a.Address.String(),
		Bump:            int16(a.Bump),
		Owner:           a.Owner.String(),
		CompanyName:     a.CompanyName,
		Mint:            a.Mint.String(),
		TreasuryAddress: a.TreasuryAddress.String(),
		TreasuryBump:    int16(a.TreasuryBump),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func fromVestingAccountModel(m *vestingAccountModel) (*account.VestingAccount, error) {
	addrs, err := parseAddresses(m.Address, m.Owner, m.Mint, m.TreasuryAddress)
	if err != nil {
		return nil, err
	}
	return &account.VestingAccount{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Address:         addrs[0],
		Bump:            uint8(m.Bump),
		Owner:           addrs[1],
		CompanyName:     m.CompanyName,
		Mint:            addrs[2],
		TreasuryAddress: addrs[3],
		TreasuryBump:    uint8(m.TreasuryBump),
	}, nil
}

// ==================== Employee account models ====================

type employeeModel struct {
	grove.BaseModel `grove:"table:vesting_employees"`

	Address        string    `grove:"address,pk" bson:"_id"`
	Bump           int16     `grove:"bump" bson:"bump"`
	Beneficiary    string    `grove:"beneficiary" bson:"beneficiary"`
	VestingAccount string    `grove:"vesting_account" bson:"vesting_account"`
	StartTime      int64     `grove:"start_time" bson:"start_time"`
	CliffTime      int64     `grove:"cliff_time" bson:"cliff_time"`
	EndTime        int64     `grove:"end_time" bson:"end_time"`
	TotalAmount    int64     `grove:"total_amount" bson:"total_amount"`
	TotalWithdrawn int64     `grove:"total_withdrawn" bson:"total_withdrawn"`
	Version        int64     `grove:"version" bson:"version"`
	CreatedAt      time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at" bson:"updated_at"`
}

func toEmployeeModel(a *employee.Account) *employeeModel {
	return &employeeModel{
		Address:        a.Address.String(),
		Bump:           int16(a.Bump),
		Beneficiary:    a.Beneficiary.String(),
		VestingAccount: a.VestingAccount.String(),
		StartTime:      a.StartTime,
		CliffTime:      a.CliffTime,
		EndTime:        a.EndTime,
		TotalAmount:    a.TotalAmount,
		TotalWithdrawn: a.TotalWithdrawn,
		Version:        a.Version,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func fromEmployeeModel(m *employeeModel) (*employee.Account, error) {
	addrs, err := parseAddresses(m.Address, m.Beneficiary, m.VestingAccount)
	if err != nil {
		return nil, err
	}
	return &employee.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Address:        addrs[0],
		Bump:           uint8(m.Bump),
		Beneficiary:    addrs[1],
		VestingAccount: addrs[2],
		StartTime:      m.StartTime,
		CliffTime:      m.CliffTime,
		EndTime:        m.EndTime,
		TotalAmount:    m.TotalAmount,
		TotalWithdrawn: m.TotalWithdrawn,
		Version:        m.Version,
	}, nil
}

// ==================== Claim models ====================

type claimModel struct {
	grove.BaseModel `grove:"table:vesting_claims"`

	ID              string    `grove:"id,pk" bson:"_id"`
	EmployeeAccount string    `grove:"employee_account" bson:"employee_account"`
	VestingAccount  string    `grove:"vesting_account" bson:"vesting_account"`
	Beneficiary     string    `grove:"beneficiary" bson:"beneficiary"`
	Treasury        string    `grove:"treasury" bson:"treasury"`
	Mint            string    `grove:"mint" bson:"mint"`
	Amount          int64     `grove:"amount" bson:"amount"`
	WithdrawnBefore int64     `grove:"withdrawn_before" bson:"withdrawn_before"`
	VersionBefore   int64     `grove:"version_before" bson:"version_before"`
	ClaimedAt       int64     `grove:"claimed_at" bson:"claimed_at"`
	Status          string    `grove:"status" bson:"status"`
	Reason          string    `grove:"reason" bson:"reason"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at" bson:"updated_at"`
}

func toClaimModel(c *claim.Claim) *claimModel {
	return &claimModel{
		ID:              c.ID.String(),
		EmployeeAccount: c.EmployeeAccount.String(),
		VestingAccount:  c.VestingAccount.String(),
		Beneficiary:     c.Beneficiary.String(),
		Treasury:        c.Treasury.String(),
		Mint:            c.Mint.String(),
		Amount:          c.Amount,
		WithdrawnBefore: c.WithdrawnBefore,
		VersionBefore:   c.VersionBefore,
		ClaimedAt:       c.ClaimedAt,
		Status:          string(c.Status),
		Reason:          c.Reason,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromClaimModel(m *claimModel) (*claim.Claim, error) {
	claimID, err := id.ParseClaimID(m.ID)
	if err != nil {
		return nil, err
	}
	addrs, err := parseAddresses(m.EmployeeAccount, m.VestingAccount, m.Beneficiary, m.Treasury, m.Mint)
	if err != nil {
		return nil, err
	}
	return &claim.Claim{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              claimID,
		EmployeeAccount: addrs[0],
		VestingAccount:  addrs[1],
		Beneficiary:     addrs[2],
		Treasury:        addrs[3],
		Mint:            addrs[4],
		Amount:          m.Amount,
		WithdrawnBefore: m.WithdrawnBefore,
		VersionBefore:   m.VersionBefore,
		ClaimedAt:       m.ClaimedAt,
		Status:          claim.Status(m.Status),
		Reason:          m.Reason,
	}, nil
}

func parseAddresses(values ...string) ([]address.Address, error) {
	out := make([]address.Address, len(values))
	for i, v := range values {
		if err := out[i].UnmarshalText([]byte(v)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
