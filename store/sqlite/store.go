package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/id"
	vestingstore "github.com/xraph/vesting/store"
)

// compile-time interface check
var _ vestingstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Open opens the SQLite database at dsn and returns a store on it. Call
// Migrate before first use. Concurrent writers need a busy timeout in the
// DSN, e.g. "file:vesting.db?_pragma=busy_timeout(5000)".
func Open(ctx context.Context, dsn string, opts ...driver.Option) (*Store, error) {
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, dsn, opts...); err != nil {
		return nil, fmt.Errorf("vesting/sqlite: %w", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("vesting/sqlite: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("vesting/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("vesting/sqlite: %w: %w", vesting.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Vesting Account Store ====================

func (s *Store) CreateVestingAccount(ctx context.Context, a *account.VestingAccount) error {
	m := toVestingAccountModel(a)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return vesting.ErrDuplicateAccount
		}
		return fmt.Errorf("vesting/sqlite: insert vesting account: %w", err)
	}
	return nil
}

func (s *Store) GetVestingAccount(ctx context.Context, addr address.Address) (*account.VestingAccount, error) {
	m := new(vestingAccountModel)
	err := s.sdb.NewSelect(m).
		Where("address = ?", addr.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vesting.ErrAccountNotFound
		}
		return nil, err
	}
	return fromVestingAccountModel(m)
}

func (s *Store) GetVestingAccountByCompany(ctx context.Context, owner address.Address, companyName string) (*account.VestingAccount, error) {
	m := new(vestingAccountModel)
	err := s.sdb.NewSelect(m).
		Where("owner = ?", owner.String()).
		Where("company_name = ?", companyName).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vesting.ErrAccountNotFound
		}
		return nil, err
	}
	return fromVestingAccountModel(m)
}

func (s *Store) ListVestingAccounts(ctx context.Context, opts account.ListOpts) ([]*account.VestingAccount, error) {
	var models []vestingAccountModel
	q := s.sdb.NewSelect(&models)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, address ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromVestingAccountModels(models)
}

func (s *Store) ListVestingAccountsByOwner(ctx context.Context, owner address.Address, opts account.ListOpts) ([]*account.VestingAccount, error) {
	var models []vestingAccountModel
	q := s.sdb.NewSelect(&models).Where("owner = ?", owner.String())
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, address ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromVestingAccountModels(models)
}

// ==================== Employee Store ====================

func (s *Store) CreateEmployeeAccount(ctx context.Context, a *employee.Account) error {
	m := toEmployeeModel(a)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return vesting.ErrDuplicateAccount
		}
		return fmt.Errorf("vesting/sqlite: insert employee account: %w", err)
	}
	return nil
}

func (s *Store) GetEmployeeAccount(ctx context.Context, addr address.Address) (*employee.Account, error) {
	m := new(employeeModel)
	err := s.sdb.NewSelect(m).
		Where("address = ?", addr.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vesting.ErrAccountNotFound
		}
		return nil, err
	}
	return fromEmployeeModel(m)
}

func (s *Store) ListEmployeesByVestingAccount(ctx context.Context, vestingAccount address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	return s.listEmployees(ctx, "vesting_account = ?", vestingAccount, opts)
}

func (s *Store) ListEmployeesByBeneficiary(ctx context.Context, beneficiary address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	return s.listEmployees(ctx, "beneficiary = ?", beneficiary, opts)
}

func (s *Store) listEmployees(ctx context.Context, where string, key address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	var models []employeeModel
	q := s.sdb.NewSelect(&models).Where(where, key.String())
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, address ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*employee.Account, len(models))
	for i := range models {
		a, err := fromEmployeeModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) RecordWithdrawal(ctx context.Context, addr address.Address, expectedVersion, delta int64) (*employee.Account, error) {
	res, err := s.sdb.NewUpdate((*employeeModel)(nil)).
		Set("total_withdrawn = total_withdrawn + ?", delta).
		Set("version = version + 1").
		Set("updated_at = ?", now()).
		Where("address = ?", addr.String()).
		Where("version = ?", expectedVersion).
		Where("total_withdrawn + ? BETWEEN 0 AND total_amount", delta).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("vesting/sqlite: record withdrawal: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	current, err := s.GetEmployeeAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, classifyWithdrawalMiss(current, expectedVersion)
	}
	return current, nil
}

// ==================== Claim Store ====================

func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim) error {
	m := toClaimModel(c)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return vesting.ErrDuplicateClaim
		}
		return fmt.Errorf("vesting/sqlite: insert claim: %w", err)
	}
	return nil
}

func (s *Store) GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	m := new(claimModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", claimID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vesting.ErrClaimNotFound
		}
		return nil, err
	}
	return fromClaimModel(m)
}

func (s *Store) ListClaims(ctx context.Context, employeeAccount address.Address, opts claim.ListOpts) ([]*claim.Claim, error) {
	var models []claimModel
	q := s.sdb.NewSelect(&models).Where("employee_account = ?", employeeAccount.String())

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromClaimModels(models)
}

func (s *Store) ListPendingClaims(ctx context.Context) ([]*claim.Claim, error) {
	var models []claimModel
	err := s.sdb.NewSelect(&models).
		Where("status = ?", string(claim.StatusPending)).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromClaimModels(models)
}

func (s *Store) ResolveClaim(ctx context.Context, claimID id.ClaimID, status claim.Status, reason string) error {
	res, err := s.sdb.NewUpdate((*claimModel)(nil)).
		Set("status = ?", string(status)).
		Set("reason = ?", reason).
		Set("updated_at = ?", now()).
		Where("id = ?", claimID.String()).
		Where("status = ?", string(claim.StatusPending)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vesting/sqlite: resolve claim: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vesting.ErrClaimNotFound
	}
	return nil
}

// ==================== Helpers ====================

func fromVestingAccountModels(models []vestingAccountModel) ([]*account.VestingAccount, error) {
	result := make([]*account.VestingAccount, len(models))
	for i := range models {
		a, err := fromVestingAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func fromClaimModels(models []claimModel) ([]*claim.Claim, error) {
	result := make([]*claim.Claim, len(models))
	for i := range models {
		c, err := fromClaimModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// classifyWithdrawalMiss explains why a compare-and-swap matched no row.
func classifyWithdrawalMiss(current *employee.Account, expectedVersion int64) error {
	if current.Version != expectedVersion {
		return vesting.ErrConcurrentClaim
	}
	return vesting.ErrWithdrawalBound
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches the SQLite driver's constraint message. The
// driver does not export a typed error for it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
