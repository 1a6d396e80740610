package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofiber/fiber/v2"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/api"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	gwmemory "github.com/xraph/vesting/gateway/memory"
	"github.com/xraph/vesting/store/memory"
)

type harness struct {
	t    *testing.T
	app  *fiber.App
	bank *gwmemory.Bank
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bank := gwmemory.New()
	v := vesting.New(memory.New(),
		vesting.WithGateway(bank),
		vesting.WithClock(vesting.UnixClock(1500)),
	)
	require.NoError(t, v.Start(context.Background()))
	return &harness{t: t, app: api.New(v).App(), bank: bank}
}

// do sends a request and decodes the JSON response into out when non-nil.
func (h *harness) do(method, path string, who *address.Address, body, out any) int {
	h.t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, "/vesting"+path, r)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set(api.IdentityHeader, who.String())
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestVestingLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	owner, alice, mint := address.Random(), address.Random(), address.Random()

	var acct account.VestingAccount
	code := h.do(http.MethodPost, "/accounts", &owner, api.CreateVestingAccountRequest{
		CompanyName: "Acme", Mint: mint,
	}, &acct)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, owner, acct.Owner)

	var apiErr api.Error
	code = h.do(http.MethodPost, "/accounts", &owner, api.CreateVestingAccountRequest{
		CompanyName: "Acme", Mint: mint,
	}, &apiErr)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_account", apiErr.Code)

	require.NoError(t, h.bank.Deposit(context.Background(), owner, mint, 2_000_000))
	code = h.do(http.MethodPost, "/accounts/"+acct.Address.String()+"/fund", &owner, api.FundTreasuryRequest{Amount: 1_000_000}, nil)
	require.Equal(t, http.StatusCreated, code)

	var treasury api.TreasuryResponse
	code = h.do(http.MethodGet, "/accounts/"+acct.Address.String()+"/treasury?decimals=6", nil, nil, &treasury)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1_000_000), treasury.Balance.Raw)
	assert.Equal(t, uint8(6), treasury.Balance.Decimals)

	grant := api.CreateEmployeeVestingRequest{
		Beneficiary: alice, StartTime: 0, CliffTime: 1000, EndTime: 2000, TotalAmount: 1000,
	}
	code = h.do(http.MethodPost, "/accounts/"+acct.Address.String()+"/employees", &alice, grant, &apiErr)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unauthorized", apiErr.Code)

	var emp employee.Account
	code = h.do(http.MethodPost, "/accounts/"+acct.Address.String()+"/employees", &owner, grant, &emp)
	require.Equal(t, http.StatusCreated, code)

	var st employee.Status
	code = h.do(http.MethodGet, "/employees/"+emp.Address.String()+"/status", nil, nil, &st)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Vesting in Progress", st.Label)
	assert.True(t, st.CanClaim)
	assert.Equal(t, int64(750), st.Claimable)

	code = h.do(http.MethodPost, "/employees/"+emp.Address.String()+"/claim", &owner, nil, &apiErr)
	assert.Equal(t, http.StatusForbidden, code)

	var settled claim.Claim
	code = h.do(http.MethodPost, "/accounts/"+acct.Address.String()+"/claim", &alice, nil, &settled)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(750), settled.Amount)
	assert.Equal(t, claim.StatusSettled, settled.Status)

	code = h.do(http.MethodPost, "/employees/"+emp.Address.String()+"/claim", &alice, nil, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "nothing_to_claim", apiErr.Code)

	var claims []claim.Claim
	code = h.do(http.MethodGet, "/employees/"+emp.Address.String()+"/claims?status=settled", nil, nil, &claims)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, claims, 1)

	var fetched claim.Claim
	code = h.do(http.MethodGet, "/claims/"+settled.ID.String(), nil, nil, &fetched)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, settled.ID, fetched.ID)

	var grants []employee.Account
	code = h.do(http.MethodGet, "/employees?beneficiary="+alice.String(), nil, nil, &grants)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, grants, 1)
	assert.Equal(t, emp.Address, grants[0].Address)

	var accts []account.VestingAccount
	code = h.do(http.MethodGet, "/accounts?owner="+owner.String(), nil, nil, &accts)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, accts, 1)

	var derived api.DeriveResponse
	code = h.do(http.MethodGet, "/derive/employee?beneficiary="+alice.String()+"&vesting_account="+acct.Address.String(), nil, nil, &derived)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, emp.Address, derived.Address)
}

func TestRequestErrors(t *testing.T) {
	h := newHarness(t)
	owner := address.Random()
	var apiErr api.Error

	tests := []struct {
		name   string
		method string
		path   string
		who    *address.Address
		body   any
		status int
		code   string
	}{
		{"missing identity", http.MethodPost, "/accounts", nil, api.CreateVestingAccountRequest{CompanyName: "Acme"}, http.StatusUnauthorized, "missing_identity"},
		{"invalid address", http.MethodGet, "/accounts/not-base58!", nil, nil, http.StatusBadRequest, "invalid_address"},
		{"unknown account", http.MethodGet, "/accounts/" + address.Random().String(), nil, nil, http.StatusNotFound, "account_not_found"},
		{"invalid input", http.MethodPost, "/accounts", &owner, api.CreateVestingAccountRequest{CompanyName: "", Mint: address.Random()}, http.StatusBadRequest, "invalid_input"},
		{"missing beneficiary", http.MethodGet, "/employees", nil, nil, http.StatusBadRequest, "missing_beneficiary"},
		{"bad claim id", http.MethodGet, "/claims/inv_123", nil, nil, http.StatusBadRequest, "invalid_claim_id"},
		{"bad status filter", http.MethodGet, "/employees/" + address.Random().String() + "/claims?status=lost", nil, nil, http.StatusBadRequest, "invalid_status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr = api.Error{}
			code := h.do(tt.method, tt.path, tt.who, tt.body, &apiErr)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestInvalidScheduleOverHTTP(t *testing.T) {
	h := newHarness(t)
	owner, mint := address.Random(), address.Random()

	var acct account.VestingAccount
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/accounts", &owner,
		api.CreateVestingAccountRequest{CompanyName: "Acme", Mint: mint}, &acct))

	var apiErr api.Error
	code := h.do(http.MethodPost, "/accounts/"+acct.Address.String()+"/employees", &owner, api.CreateEmployeeVestingRequest{
		Beneficiary: address.Random(), StartTime: 10, CliffTime: 5, EndTime: 20, TotalAmount: 100,
	}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_schedule", apiErr.Code)
}
