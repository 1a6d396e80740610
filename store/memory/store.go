// Package memory provides an in-process implementation of store.Store.
// It is the default backend for tests and for single-node deployments that
// do not need durability.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store keeps every entity in maps guarded by one RWMutex. Values are
// copied on the way in and on the way out so callers never alias stored
// state.
type Store struct {
	mu     sync.RWMutex
	closed bool

	// Vesting account storage
	accounts  map[address.Address]*account.VestingAccount
	companies map[companyKey]address.Address

	// Employee storage, with secondary indexes
	employees     map[address.Address]*employee.Account
	byVesting     map[address.Address][]address.Address
	byBeneficiary map[address.Address][]address.Address

	// Claim journal
	claims     map[string]*claim.Claim
	byEmployee map[address.Address][]string
}

type companyKey struct {
	owner address.Address
	name  string
}

func New() *Store {
	return &Store{
		accounts:      make(map[address.Address]*account.VestingAccount),
		companies:     make(map[companyKey]address.Address),
		employees:     make(map[address.Address]*employee.Account),
		byVesting:     make(map[address.Address][]address.Address),
		byBeneficiary: make(map[address.Address][]address.Address),
		claims:        make(map[string]*claim.Claim),
		byEmployee:    make(map[address.Address][]string),
	}
}

// Vesting account Store implementation

func (s *Store) CreateVestingAccount(_ context.Context, a *account.VestingAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return vesting.ErrStoreClosed
	}
	key := companyKey{owner: a.Owner, name: a.CompanyName}
	if _, exists := s.companies[key]; exists {
		return vesting.ErrDuplicateAccount
	}
	if _, exists := s.accounts[a.Address]; exists {
		return vesting.ErrDuplicateAccount
	}
	cp := *a
	s.accounts[a.Address] = &cp
	s.companies[key] = a.Address
	return nil
}

func (s *Store) GetVestingAccount(_ context.Context, addr address.Address) (*account.VestingAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[addr]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, vesting.ErrAccountNotFound
}

func (s *Store) GetVestingAccountByCompany(_ context.Context, owner address.Address, companyName string) (*account.VestingAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if addr, ok := s.companies[companyKey{owner: owner, name: companyName}]; ok {
		cp := *s.accounts[addr]
		return &cp, nil
	}
	return nil, vesting.ErrAccountNotFound
}

func (s *Store) ListVestingAccounts(_ context.Context, opts account.ListOpts) ([]*account.VestingAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.VestingAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		result = append(result, &cp)
	}
	sortAccounts(result)
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListVestingAccountsByOwner(_ context.Context, owner address.Address, opts account.ListOpts) ([]*account.VestingAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.VestingAccount, 0)
	for _, a := range s.accounts {
		if a.Owner == owner {
			cp := *a
			result = append(result, &cp)
		}
	}
	sortAccounts(result)
	return page(result, opts.Offset, opts.Limit), nil
}

// Employee Store implementation

func (s *Store) CreateEmployeeAccount(_ context.Context, a *employee.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return vesting.ErrStoreClosed
	}
	if _, exists := s.employees[a.Address]; exists {
		return vesting.ErrDuplicateAccount
	}
	cp := *a
	s.employees[a.Address] = &cp
	s.byVesting[a.VestingAccount] = append(s.byVesting[a.VestingAccount], a.Address)
	s.byBeneficiary[a.Beneficiary] = append(s.byBeneficiary[a.Beneficiary], a.Address)
	return nil
}

func (s *Store) GetEmployeeAccount(_ context.Context, addr address.Address) (*employee.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.employees[addr]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, vesting.ErrAccountNotFound
}

func (s *Store) ListEmployeesByVestingAccount(_ context.Context, vestingAccount address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return page(s.collectEmployees(s.byVesting[vestingAccount]), opts.Offset, opts.Limit), nil
}

func (s *Store) ListEmployeesByBeneficiary(_ context.Context, beneficiary address.Address, opts employee.ListOpts) ([]*employee.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return page(s.collectEmployees(s.byBeneficiary[beneficiary]), opts.Offset, opts.Limit), nil
}

func (s *Store) RecordWithdrawal(_ context.Context, addr address.Address, expectedVersion, delta int64) (*employee.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, vesting.ErrStoreClosed
	}
	a, ok := s.employees[addr]
	if !ok {
		return nil, vesting.ErrAccountNotFound
	}
	if a.Version != expectedVersion {
		return nil, vesting.ErrConcurrentClaim
	}
	next := a.TotalWithdrawn + delta
	if next < 0 || next > a.TotalAmount {
		return nil, vesting.ErrWithdrawalBound
	}

	a.TotalWithdrawn = next
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

// Claim journal implementation

func (s *Store) CreateClaim(_ context.Context, c *claim.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return vesting.ErrStoreClosed
	}
	key := c.ID.String()
	if _, exists := s.claims[key]; exists {
		return vesting.ErrDuplicateClaim
	}
	cp := *c
	s.claims[key] = &cp
	s.byEmployee[c.EmployeeAccount] = append(s.byEmployee[c.EmployeeAccount], key)
	return nil
}

func (s *Store) GetClaim(_ context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.claims[claimID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, vesting.ErrClaimNotFound
}

func (s *Store) ListClaims(_ context.Context, employeeAccount address.Address, opts claim.ListOpts) ([]*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.byEmployee[employeeAccount]
	result := make([]*claim.Claim, 0, len(keys))
	// Journal order is insertion order; newest first.
	for i := len(keys) - 1; i >= 0; i-- {
		c := s.claims[keys[i]]
		if opts.Status == "" || c.Status == opts.Status {
			cp := *c
			result = append(result, &cp)
		}
	}
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListPendingClaims(_ context.Context) ([]*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*claim.Claim, 0)
	for _, c := range s.claims {
		if c.Status == claim.StatusPending {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) ResolveClaim(_ context.Context, claimID id.ClaimID, status claim.Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return vesting.ErrStoreClosed
	}
	c, ok := s.claims[claimID.String()]
	if !ok || c.Status != claim.StatusPending {
		return vesting.ErrClaimNotFound
	}
	c.Status = status
	c.Reason = reason
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return vesting.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Helper functions

// collectEmployees copies the indexed accounts. Each address appears in an
// index once, so the result has no duplicates.
func (s *Store) collectEmployees(addrs []address.Address) []*employee.Account {
	result := make([]*employee.Account, 0, len(addrs))
	for _, addr := range addrs {
		cp := *s.employees[addr]
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return createdBefore(result[i].CreatedAt, result[j].CreatedAt, result[i].Address, result[j].Address)
	})
	return result
}

func sortAccounts(accts []*account.VestingAccount) {
	sort.Slice(accts, func(i, j int) bool {
		return createdBefore(accts[i].CreatedAt, accts[j].CreatedAt, accts[i].Address, accts[j].Address)
	})
}

func createdBefore(ti, tj time.Time, ai, aj address.Address) bool {
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}
	return ai.String() < aj.String()
}

func page[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
