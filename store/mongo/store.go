package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/id"
	vestingstore "github.com/xraph/vesting/store"
)

// Collection name constants.
const (
	colAccounts  = "vesting_accounts"
	colEmployees = "vesting_employees"
	colClaims    = "vesting_claims"
)

// compile-time interface check
var _ vestingstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all vesting collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("vesting/mongo: migrate %s indexes: %w: %w", col, vesting.ErrMigrationFailed, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return vesting.ErrDuplicateAccount
		}
		return fmt.Errorf("vesting/mongo: create vesting account: %w", err)
	}
	return nil
}

func (s *Store) GetVestingAccount(ctx context.Context, addr address.Address) (*account.VestingAccount, error) {
	var m vestingAccountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addr.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vesting.ErrAccountNotFound
		}
		return nil, fmt.Errorf("vesting/mongo: get vesting account: %w", err)
	}
	return fromVestingAccountModel(&m)
}

func (s *Store) GetVestingAccountByCompany(ctx context.Context, owner address.Address, companyName string) (*account.VestingAccount, error) {
	var m vestingAccountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"owner": owner.String(), "company_name": companyName}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vesting.ErrAccountNotFound
		}
		return nil, fmt.Errorf("vesting/mongo: get vesting account by company: %w", err)
	}
	return fromVestingAccountModel(&m)
}

func (s *Store) ListVestingAccounts(ctx context.Context, opts account.ListOpts) ([]*account.VestingAccount, error) {
	return s.listVestingAccounts(ctx, bson.M{}, opts)
}

func (s *Store) ListVestingAccountsByOwner(ctx context.Context, owner address.Address, opts account.ListOpts) ([]*account.VestingAccount, error) {
	return s.listVestingAccounts(ctx, bson.M{"owner": owner.String()}, opts)
}

func (s *Store) listVestingAccounts(ctx context.Context, filter bson.M, opts account.ListOpts) ([]*account.VestingAccount, error) {
	var models []vestingAccountModel

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vesting/mongo: list vesting accounts: %w", err)
	}

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

// ==================== Employee Store ====================

func (s *Store) CreateEmployeeAccount(ctx context.Context, a *employee.Account) error {
	m := toEmployeeModel(a)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return vesting.ErrDuplicateAccount
		}
		return fmt.Errorf("vesting/mongo: create employee account: %w", err)
	}
	return nil
}

func (s *Store) GetEmployeeAccount(ctx context.Context, addr address.Address) (*employee.Account, error) {
	var m employeeModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addr.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vesting.ErrAccountNotFound
		}
		return nil, fmt.Errorf("vesting/mongo: get employee account: %w", err)
	}
	return fromEmployeeModel(&m)
}

func (s *Store) ListEmployeesByVestingAccount(ctx context.Context, vestingAccount address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	return s.listEmployees(ctx, bson.M{"vesting_account": vestingAccount.String()}, opts)
}

func (s *Store) ListEmployeesByBeneficiary(ctx context.Context, beneficiary address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	return s.listEmployees(ctx, bson.M{"beneficiary": beneficiary.String()}, opts)
}

func (s *Store) listEmployees(ctx context.Context, filter bson.M, opts employee.ListOpts) ([]*employee.Account, error) {
	var models []employeeModel

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vesting/mongo: list employee accounts: %w", err)
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
	next := bson.M{"$add": bson.A{"$total_withdrawn", delta}}
	filter := bson.M{
		"_id":     addr.String(),
		"version": expectedVersion,
		"$expr": bson.M{"$and": bson.A{
			bson.M{"$gte": bson.A{next, 0}},
			bson.M{"$lte": bson.A{next, "$total_amount"}},
		}},
	}
	update := bson.M{
		"$inc": bson.M{"total_withdrawn": delta, "version": 1},
		"$set": bson.M{"updated_at": now()},
	}

	// The updated document comes back in the same round trip.
	var m employeeModel
	err := s.mdb.Collection(colEmployees).
		FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&m)
	if err == nil {
		return fromEmployeeModel(&m)
	}
	if !isNoDocuments(err) {
		return nil, fmt.Errorf("vesting/mongo: record withdrawal: %w", err)
	}

	current, err := s.GetEmployeeAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, vesting.ErrConcurrentClaim
	}
	return nil, vesting.ErrWithdrawalBound
}

// ==================== Claim Store ====================

func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim) error {
	m := toClaimModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return vesting.ErrDuplicateClaim
		}
		return fmt.Errorf("vesting/mongo: create claim: %w", err)
	}
	return nil
}

func (s *Store) GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	var m claimModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": claimID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vesting.ErrClaimNotFound
		}
		return nil, fmt.Errorf("vesting/mongo: get claim: %w", err)
	}
	return fromClaimModel(&m)
}

func (s *Store) ListClaims(ctx context.Context, employeeAccount address.Address, opts claim.ListOpts) ([]*claim.Claim, error) {
	var models []claimModel

	filter := bson.M{"employee_account": employeeAccount.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vesting/mongo: list claims: %w", err)
	}
	return fromClaimModels(models)
}

func (s *Store) ListPendingClaims(ctx context.Context) ([]*claim.Claim, error) {
	var models []claimModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"status": string(claim.StatusPending)}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vesting/mongo: list pending claims: %w", err)
	}
	return fromClaimModels(models)
}

func (s *Store) ResolveClaim(ctx context.Context, claimID id.ClaimID, status claim.Status, reason string) error {
	res, err := s.mdb.NewUpdate((*claimModel)(nil)).
		Filter(bson.M{"_id": claimID.String(), "status": string(claim.StatusPending)}).
		Set("status", string(status)).
		Set("reason", reason).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vesting/mongo: resolve claim: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vesting.ErrClaimNotFound
	}
	return nil
}

// ==================== Helpers ====================

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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all vesting collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{
				Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "company_name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colEmployees: {
			{
				Keys:    bson.D{{Key: "vesting_account", Value: 1}, {Key: "beneficiary", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "beneficiary", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colClaims: {
			{Keys: bson.D{{Key: "employee_account", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
