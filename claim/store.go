package claim

import (
	"context"

	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/id"
)

// Store persists the claim journal.
type Store interface {
	Create(ctx context.Context, c *Claim) error
	Get(ctx context.Context, claimID id.ClaimID) (*Claim, error)
	List(ctx context.Context, employeeAccount address.Address, opts ListOpts) ([]*Claim, error)
	ListPending(ctx context.Context) ([]*Claim, error)

	// Resolve moves a pending claim to settled or reverted. Resolving a
	// claim that is no longer pending fails with vesting.ErrClaimNotFound.
	Resolve(ctx context.Context, claimID id.ClaimID, status Status, reason string) error
}

// ListOpts filters and pages a claim listing. Results are newest first.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
