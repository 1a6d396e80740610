package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/schedule"
	"github.com/xraph/vesting/types"
)

// CreateVestingAccountRequest is the body of POST /accounts.
type CreateVestingAccountRequest struct {
	CompanyName string          `json:"company_name"`
	Mint        address.Address `json:"mint"`
}

// CreateEmployeeVestingRequest is the body of POST /accounts/:address/employees.
type CreateEmployeeVestingRequest struct {
	Beneficiary address.Address `json:"beneficiary"`
	StartTime   int64           `json:"start_time"`
	CliffTime   int64           `json:"cliff_time"`
	EndTime     int64           `json:"end_time"`
	TotalAmount int64           `json:"total_amount"`
}

// FundTreasuryRequest is the body of POST /accounts/:address/fund.
type FundTreasuryRequest struct {
	Amount int64 `json:"amount"`
}

// FundTreasuryResponse is returned by POST /accounts/:address/fund.
type FundTreasuryResponse struct {
	DepositID id.DepositID    `json:"deposit_id"`
	Treasury  address.Address `json:"treasury"`
	Amount    int64           `json:"amount"`
}

// TreasuryResponse is returned by GET /accounts/:address/treasury.
type TreasuryResponse struct {
	VestingAccount address.Address   `json:"vesting_account"`
	Treasury       address.Address   `json:"treasury"`
	Mint           address.Address   `json:"mint"`
	Balance        types.TokenAmount `json:"balance"`
}

// DeriveResponse is returned by GET /derive/employee.
type DeriveResponse struct {
	vesting.Derived
	Namespace address.Address `json:"namespace"`
}

// ──────────────────────────────────────────────────
// Vesting accounts
// ──────────────────────────────────────────────────

func (a *API) createVestingAccount(c *fiber.Ctx) error {
	owner, err := identity(c)
	if err != nil {
		return err
	}
	var req CreateVestingAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid_body", err.Error())
	}

	acct, err := a.engine.CreateVestingAccount(c.UserContext(), owner, req.CompanyName, req.Mint)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(acct)
}

func (a *API) listVestingAccounts(c *fiber.Ctx) error {
	limit, offset, err := page(c)
	if err != nil {
		return err
	}
	owner, byOwner, err := queryAddress(c, "owner")
	if err != nil {
		return err
	}
	opts := account.ListOpts{Limit: limit, Offset: offset}

	if name := c.Query("company_name"); byOwner && name != "" {
		acct, err := a.engine.GetVestingAccountByCompany(c.UserContext(), owner, name)
		if err != nil {
			return err
		}
		return c.JSON([]*account.VestingAccount{acct})
	}

	var accts []*account.VestingAccount
	if byOwner {
		accts, err = a.engine.ListVestingAccountsByOwner(c.UserContext(), owner, opts)
	} else {
		accts, err = a.engine.ListVestingAccounts(c.UserContext(), opts)
	}
	if err != nil {
		return err
	}
	return c.JSON(accts)
}

func (a *API) getVestingAccount(c *fiber.Ctx) error {
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	acct, err := a.engine.GetVestingAccount(c.UserContext(), addr)
	if err != nil {
		return err
	}
	return c.JSON(acct)
}

func (a *API) treasuryBalance(c *fiber.Ctx) error {
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	decimals := c.QueryInt("decimals", 0)
	if decimals < 0 || decimals > types.MaxDecimals {
		return badRequest("invalid_decimals", "decimals must be between 0 and 18")
	}

	acct, err := a.engine.GetVestingAccount(c.UserContext(), addr)
	if err != nil {
		return err
	}
	balance, err := a.engine.TreasuryBalance(c.UserContext(), addr)
	if err != nil {
		return err
	}
	return c.JSON(TreasuryResponse{
		VestingAccount: acct.Address,
		Treasury:       acct.TreasuryAddress,
		Mint:           acct.Mint,
		Balance:        types.NewTokenAmount(balance, uint8(decimals)),
	})
}

func (a *API) fundTreasury(c *fiber.Ctx) error {
	funder, err := identity(c)
	if err != nil {
		return err
	}
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	var req FundTreasuryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid_body", err.Error())
	}

	depositID, err := a.engine.FundTreasury(c.UserContext(), funder, addr, req.Amount)
	if err != nil {
		return err
	}
	acct, err := a.engine.GetVestingAccount(c.UserContext(), addr)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(FundTreasuryResponse{
		DepositID: depositID,
		Treasury:  acct.TreasuryAddress,
		Amount:    req.Amount,
	})
}

// ──────────────────────────────────────────────────
// Employee grants
// ──────────────────────────────────────────────────

func (a *API) createEmployeeVesting(c *fiber.Ctx) error {
	requester, err := identity(c)
	if err != nil {
		return err
	}
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	var req CreateEmployeeVestingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid_body", err.Error())
	}

	emp, err := a.engine.CreateEmployeeVesting(c.UserContext(), requester, addr, req.Beneficiary, schedule.Schedule{
		StartTime:   req.StartTime,
		CliffTime:   req.CliffTime,
		EndTime:     req.EndTime,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(emp)
}

func (a *API) listEmployees(c *fiber.Ctx) error {
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	limit, offset, err := page(c)
	if err != nil {
		return err
	}
	emps, err := a.engine.ListEmployees(c.UserContext(), addr, employee.ListOpts{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	return c.JSON(emps)
}

func (a *API) listByBeneficiary(c *fiber.Ctx) error {
	beneficiary, ok, err := queryAddress(c, "beneficiary")
	if err != nil {
		return err
	}
	if !ok {
		return badRequest("missing_beneficiary", "beneficiary query parameter is required")
	}
	limit, offset, err := page(c)
	if err != nil {
		return err
	}
	emps, err := a.engine.ListByBeneficiary(c.UserContext(), beneficiary, employee.ListOpts{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	return c.JSON(emps)
}

func (a *API) getEmployeeAccount(c *fiber.Ctx) error {
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	emp, err := a.engine.GetEmployeeAccount(c.UserContext(), addr)
	if err != nil {
		return err
	}
	return c.JSON(emp)
}

func (a *API) status(c *fiber.Ctx) error {
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	st, err := a.engine.Status(c.UserContext(), addr)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (a *API) deriveEmployee(c *fiber.Ctx) error {
	beneficiary, ok, err := queryAddress(c, "beneficiary")
	if err != nil {
		return err
	}
	vestingAccount, ok2, err := queryAddress(c, "vesting_account")
	if err != nil {
		return err
	}
	if !ok || !ok2 {
		return badRequest("missing_seed", "beneficiary and vesting_account are required")
	}
	derived, err := vesting.DeriveEmployeeAccount(a.engine.Namespace(), beneficiary, vestingAccount)
	if err != nil {
		return err
	}
	return c.JSON(DeriveResponse{Derived: derived, Namespace: a.engine.Namespace()})
}

// ──────────────────────────────────────────────────
// Claims
// ──────────────────────────────────────────────────

func (a *API) claim(c *fiber.Ctx) error {
	requester, err := identity(c)
	if err != nil {
		return err
	}
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	cl, err := a.engine.Claim(c.UserContext(), addr, requester)
	if err != nil {
		return err
	}
	return c.JSON(cl)
}

func (a *API) claimFor(c *fiber.Ctx) error {
	beneficiary, err := identity(c)
	if err != nil {
		return err
	}
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	cl, err := a.engine.ClaimFor(c.UserContext(), addr, beneficiary)
	if err != nil {
		return err
	}
	return c.JSON(cl)
}

func (a *API) listClaims(c *fiber.Ctx) error {
	addr, err := pathAddress(c, "address")
	if err != nil {
		return err
	}
	limit, offset, err := page(c)
	if err != nil {
		return err
	}
	opts := claim.ListOpts{Limit: limit, Offset: offset}
	switch s := claim.Status(c.Query("status")); s {
	case "":
	case claim.StatusPending, claim.StatusSettled, claim.StatusReverted:
		opts.Status = s
	default:
		return badRequest("invalid_status", "unknown claim status "+string(s))
	}

	claims, err := a.engine.ListClaims(c.UserContext(), addr, opts)
	if err != nil {
		return err
	}
	return c.JSON(claims)
}

func (a *API) getClaim(c *fiber.Ctx) error {
	claimID, err := id.ParseClaimID(c.Params("id"))
	if err != nil {
		return badRequest("invalid_claim_id", err.Error())
	}
	cl, err := a.engine.GetClaim(c.UserContext(), claimID)
	if err != nil {
		return err
	}
	return c.JSON(cl)
}
