package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the pg migration executor
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

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// Open connects to the PostgreSQL database at dsn and returns a store on
// it. Call Migrate before first use.
func Open(ctx context.Context, dsn string, opts ...driver.Option) (*Store, error) {
	pg := pgdriver.New()
	if err := pg.Open(ctx, dsn, opts...); err != nil {
		return nil, fmt.Errorf("vesting/postgres: %w", err)
	}
	db, err := grove.Open(pg)
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("vesting/postgres: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("vesting/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("vesting/postgres: %w: %w", vesting.ErrMigrationFailed, err)
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
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return vesting.ErrDuplicateAccount
		}
		return fmt.Errorf("vesting/postgres: insert vesting account: %w", err)
	}
	return nil
}

func (s *Store) GetVestingAccount(ctx context.Context, addr address.Address) (*account.VestingAccount, error) {
	m := new(vestingAccountModel)
	err := s.pg.NewSelect(m).
		Where("address = $1", addr.String()).
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
	err := s.pg.NewSelect(m).
		Where("owner = $1", owner.String()).
		Where("company_name = $2", companyName).
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
	q := s.pg.NewSelect(&models)
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
	q := s.pg.NewSelect(&models).Where("owner = $1", owner.String())
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
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return vesting.ErrDuplicateAccount
		}
		return fmt.Errorf("vesting/postgres: insert employee account: %w", err)
	}
	return nil
}

func (s *Store) GetEmployeeAccount(ctx context.Context, addr address.Address) (*employee.Account, error) {
	m := new(employeeModel)
	err := s.pg.NewSelect(m).
		Where("address = $1", addr.String()).
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
	return s.listEmployees(ctx, "vesting_account = $1", vestingAccount, opts)
}

func (s *Store) ListEmployeesByBeneficiary(ctx context.Context, beneficiary address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	return s.listEmployees(ctx, "beneficiary = $1", beneficiary, opts)
}

func (s *Store) listEmployees(ctx context.Context, where string, key address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	var models []employeeModel
	q := s.pg.NewSelect(&models).Where(where, key.String())
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
	res, err := s.pg.NewUpdate((*employeeModel)(nil)).
		Set("total_withdrawn = total_withdrawn + $1", delta).
		Set("version = version + 1").
		Set("updated_at = $2", now()).
		Where("address = $3", addr.String()).
		Where("version = $4", expectedVersion).
		Where("total_withdrawn + $5 BETWEEN 0 AND total_amount", delta).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("vesting/postgres: record withdrawal: %w", err)
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
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return vesting.ErrDuplicateClaim
		}
		return fmt.Errorf("vesting/postgres: insert claim: %w", err)
	}
	return nil
}

func (s *Store) GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	m := new(claimModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", claimID.String()).
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
	q := s.pg.NewSelect(&models).Where("employee_account = $1", employeeAccount.String())

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
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
	err := s.pg.NewSelect(&models).
		Where("status = $1", string(claim.StatusPending)).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromClaimModels(models)
}

func (s *Store) ResolveClaim(ctx context.Context, claimID id.ClaimID, status claim.Status, reason string) error {
	res, err := s.pg.NewUpdate((*claimModel)(nil)).
		Set("status = $1", string(status)).
		Set("reason = $2", reason).
		Set("updated_at = $3", now()).
		Where("id = $4", claimID.String()).
		Where("status = $5", string(claim.StatusPending)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vesting/postgres: resolve claim: %w", err)
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
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// isUniqueViolation reports a PostgreSQL unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
