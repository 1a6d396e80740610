package vesting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/gateway"
	"github.com/xraph/vesting/gateway/memory"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/plugin"
	"github.com/xraph/vesting/schedule"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
)

// Engine is the vesting ledger and claim authorizer.
type Engine struct {
	store   store.Store
	gateway gateway.Gateway
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   Clock
	locks   *keyedMutex

	// Configuration
	namespaceLabel      string
	namespace           address.Address
	recoveryConcurrency int
	autoMigrate         bool
}

// New creates a new Engine. Without WithGateway the engine settles claims
// against an in-memory bank.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:               s,
		plugins:             plugin.NewRegistry(),
		logger:              slog.Default(),
		clock:               SystemClock,
		locks:               newKeyedMutex(),
		namespaceLabel:      DefaultNamespace,
		namespace:           address.Namespace(DefaultNamespace),
		recoveryConcurrency: 4,
		autoMigrate:         true,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.gateway == nil {
		e.gateway = memory.New()
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithHookTimeout bounds each plugin hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.plugins.WithTimeout(d)
		}
	}
}

// WithGateway sets the token transfer gateway.
func WithGateway(gw gateway.Gateway) Option {
	return func(e *Engine) {
		e.gateway = gw
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithNamespace scopes every address derivation to label. Two engines
// with different namespaces never derive the same address.
func WithNamespace(label string) Option {
	return func(e *Engine) {
		if label == "" {
			return
		}
		e.namespaceLabel = label
		e.namespace = address.Namespace(label)
	}
}

// WithRecoveryConcurrency bounds how many pending claims Recover resolves
// in parallel.
func WithRecoveryConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.recoveryConcurrency = n
		}
	}
}

// WithAutoMigrate controls whether Start runs store migrations.
func WithAutoMigrate(enabled bool) Option {
	return func(e *Engine) {
		e.autoMigrate = enabled
	}
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Gateway returns the transfer gateway.
func (e *Engine) Gateway() gateway.Gateway { return e.gateway }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Namespace returns the derivation namespace address.
func (e *Engine) Namespace() address.Address { return e.namespace }

// Start migrates the store, initializes plugins and resolves claims left
// pending by a previous run.
func (e *Engine) Start(ctx context.Context) error {
	if e.autoMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	recovered, err := e.Recover(ctx)
	if err != nil {
		e.logger.Error("claim recovery incomplete",
			"recovered", recovered,
			"error", err,
		)
	}

	e.logger.Info("vesting engine started",
		"namespace", e.namespaceLabel,
		"recovered_claims", recovered,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Vesting Accounts
// ──────────────────────────────────────────────────

// CreateVestingAccount creates the company vesting account owned by owner.
// The account and treasury addresses are derived from (owner, companyName).
func (e *Engine) CreateVestingAccount(ctx context.Context, owner address.Address, companyName string, mint address.Address) (*account.VestingAccount, error) {
	name := strings.TrimSpace(companyName)

	var verr MultiError
	if owner.IsZero() {
		verr.Add(ValidationError{Field: "owner", Message: "is required"})
	}
	if mint.IsZero() {
		verr.Add(ValidationError{Field: "mint", Message: "is required"})
	}
	switch {
	case name == "":
		verr.Add(ValidationError{Field: "company_name", Message: "is required"})
	case len(name) > account.MaxCompanyNameLen:
		verr.Add(ValidationError{Field: "company_name", Message: fmt.Sprintf("must be at most %d bytes", account.MaxCompanyNameLen)})
	}
	if verr.HasErrors() {
		return nil, verr.First()
	}

	acctAddr, err := DeriveVestingAccount(e.namespace, owner, name)
	if err != nil {
		return nil, err
	}
	treasury, err := DeriveTreasury(e.namespace, owner, name)
	if err != nil {
		return nil, err
	}

	a := &account.VestingAccount{
		Entity:          types.NewEntity(),
		Address:         acctAddr.Address,
		Bump:            acctAddr.Bump,
		Owner:           owner,
		CompanyName:     name,
		Mint:            mint,
		TreasuryAddress: treasury.Address,
		TreasuryBump:    treasury.Bump,
	}

	if err := e.store.CreateVestingAccount(ctx, a); err != nil {
		return nil, err
	}

	e.logger.Info("vesting account created",
		"address", a.Address,
		"owner", owner,
		"company", name,
	)
	e.plugins.EmitVestingAccountCreated(ctx, a)
	return a, nil
}

// GetVestingAccount retrieves a vesting account by address.
func (e *Engine) GetVestingAccount(ctx context.Context, addr address.Address) (*account.VestingAccount, error) {
	return e.store.GetVestingAccount(ctx, addr)
}

// GetVestingAccountByCompany retrieves a vesting account by its seeds.
func (e *Engine) GetVestingAccountByCompany(ctx context.Context, owner address.Address, companyName string) (*account.VestingAccount, error) {
	return e.store.GetVestingAccountByCompany(ctx, owner, strings.TrimSpace(companyName))
}

// ListVestingAccounts lists every vesting account.
func (e *Engine) ListVestingAccounts(ctx context.Context, opts account.ListOpts) ([]*account.VestingAccount, error) {
	return e.store.ListVestingAccounts(ctx, opts)
}

// ListVestingAccountsByOwner lists the vesting accounts of one owner.
func (e *Engine) ListVestingAccountsByOwner(ctx context.Context, owner address.Address, opts account.ListOpts) ([]*account.VestingAccount, error) {
	return e.store.ListVestingAccountsByOwner(ctx, owner, opts)
}

// ──────────────────────────────────────────────────
// Employee Grants
// ──────────────────────────────────────────────────

// CreateEmployeeVesting grants beneficiary a vesting schedule under
// vestingAccount. Only the account owner may do this.
func (e *Engine) CreateEmployeeVesting(ctx context.Context, requester, vestingAccount, beneficiary address.Address, sched schedule.Schedule) (*employee.Account, error) {
	if beneficiary.IsZero() {
		return nil, ValidationError{Field: "beneficiary", Message: "is required"}
	}

	va, err := e.store.GetVestingAccount(ctx, vestingAccount)
	if err != nil {
		return nil, err
	}
	if requester != va.Owner {
		return nil, fmt.Errorf("%w: %s does not own vesting account %s", ErrUnauthorized, requester, va.Address)
	}
	if err := sched.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	derived, err := DeriveEmployeeAccount(e.namespace, beneficiary, va.Address)
	if err != nil {
		return nil, err
	}

	emp := &employee.Account{
		Entity:         types.NewEntity(),
		Address:        derived.Address,
		Bump:           derived.Bump,
		Beneficiary:    beneficiary,
		VestingAccount: va.Address,
		StartTime:      sched.StartTime,
		CliffTime:      sched.CliffTime,
		EndTime:        sched.EndTime,
		TotalAmount:    sched.TotalAmount,
	}

	if err := e.store.CreateEmployeeAccount(ctx, emp); err != nil {
		return nil, err
	}

	e.logger.Info("employee vesting created",
		"address", emp.Address,
		"vesting_account", va.Address,
		"beneficiary", beneficiary,
		"total_amount", emp.TotalAmount,
	)
	e.plugins.EmitEmployeeVestingCreated(ctx, emp)
	return emp, nil
}

// GetEmployeeAccount retrieves an employee account by address.
func (e *Engine) GetEmployeeAccount(ctx context.Context, addr address.Address) (*employee.Account, error) {
	return e.store.GetEmployeeAccount(ctx, addr)
}

// ListEmployees lists the grants under a vesting account.
func (e *Engine) ListEmployees(ctx context.Context, vestingAccount address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	return e.store.ListEmployeesByVestingAccount(ctx, vestingAccount, opts)
}

// ListByBeneficiary lists every grant held by beneficiary across all
// vesting accounts.
func (e *Engine) ListByBeneficiary(ctx context.Context, beneficiary address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	return e.store.ListEmployeesByBeneficiary(ctx, beneficiary, opts)
}

// Status derives the current status of an employee account.
func (e *Engine) Status(ctx context.Context, employeeAccount address.Address) (*employee.Status, error) {
	emp, err := e.store.GetEmployeeAccount(ctx, employeeAccount)
	if err != nil {
		return nil, err
	}
	return employee.StatusAt(emp, e.now()), nil
}

// ListClaims lists the claim journal of an employee account, newest first.
func (e *Engine) ListClaims(ctx context.Context, employeeAccount address.Address, opts claim.ListOpts) ([]*claim.Claim, error) {
	return e.store.ListClaims(ctx, employeeAccount, opts)
}

// GetClaim retrieves one claim.
func (e *Engine) GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	return e.store.GetClaim(ctx, claimID)
}

// ──────────────────────────────────────────────────
// Treasury
// ──────────────────────────────────────────────────

// FundTreasury moves amount of the account's mint from funder into its
// treasury. Anyone may fund a treasury.
func (e *Engine) FundTreasury(ctx context.Context, funder, vestingAccount address.Address, amount int64) (id.DepositID, error) {
	if amount <= 0 {
		return id.DepositID{}, ValidationError{Field: "amount", Message: "must be positive"}
	}
	va, err := e.store.GetVestingAccount(ctx, vestingAccount)
	if err != nil {
		return id.DepositID{}, err
	}

	depositID := id.NewDepositID()
	err = e.gateway.Transfer(ctx, gateway.TransferRequest{
		ID:     depositID.String(),
		From:   funder,
		To:     va.TreasuryAddress,
		Mint:   va.Mint,
		Amount: amount,
	})
	if err != nil {
		return id.DepositID{}, transferError(err)
	}

	e.logger.Info("treasury funded",
		"vesting_account", va.Address,
		"treasury", va.TreasuryAddress,
		"funder", funder,
		"amount", amount,
	)
	e.plugins.EmitTreasuryFunded(ctx, va, funder, amount)
	return depositID, nil
}

// TreasuryBalance returns the raw token balance of the account's treasury.
func (e *Engine) TreasuryBalance(ctx context.Context, vestingAccount address.Address) (int64, error) {
	va, err := e.store.GetVestingAccount(ctx, vestingAccount)
	if err != nil {
		return 0, err
	}
	return e.gateway.Balance(ctx, va.TreasuryAddress, va.Mint)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) now() int64 {
	return e.clock.Now().Unix()
}

// transferError maps a gateway failure onto the engine's error kinds.
func transferError(err error) error {
	if errors.Is(err, gateway.ErrInsufficientFunds) {
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	}
	return fmt.Errorf("%w: %w", ErrTransferFailed, err)
}
