package sqlite

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

	Address         string    `grove:"address,pk"`
	Bump            int16     `grove:"bump"`
	Owner           string    `grove:"owner"`
	CompanyName     string    `grove:"company_name"`
	Mint            string    `grove:"mint"`
	TreasuryAddress string    `grove:"treasury_address"`
	TreasuryBump    int16     `grove:"treasury_bump"`
	CreatedAt       time.Time `grove:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"`
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

	Address        string    `grove:"address,pk"`
	Bump           int16     `grove:"bump"`
	Beneficiary    string    `grove:"beneficiary"`
	VestingAccount string    `grove:"vesting_account"`
	StartTime      int64     `grove:"start_time"`
	CliffTime      int64     `grove:"cliff_time"`
	EndTime        int64     `grove:"end_time"`
	TotalAmount    int64     `grove:"total_amount"`
	TotalWithdrawn int64     `grove:"total_withdrawn"`
	Version        int64     `grove:"version"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
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

	ID              string    `grove:"id,pk"`
	EmployeeAccount string    `grove:"employee_account"`
	VestingAccount  string    `grove:"vesting_account"`
	Beneficiary     string    `grove:"beneficiary"`
	Treasury        string    `grove:"treasury"`
	Mint            string    `grove:"mint"`
	Amount          int64     `grove:"amount"`
	WithdrawnBefore int64     `grove:"withdrawn_before"`
	VersionBefore   int64     `grove:"version_before"`
	ClaimedAt       int64     `grove:"claimed_at"`
	Status          string    `grove:"status"`
	Reason          string    `grove:"reason"`
	CreatedAt       time.Time `grove:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"`
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
