package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/gateway"
	"github.com/xraph/vesting/gateway/memory"
)

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	bank := memory.New()
	treasury, alice, mint := address.Random(), address.Random(), address.Random()
	require.NoError(t, bank.Deposit(ctx, treasury, mint, 1000))

	req := gateway.TransferRequest{ID: "clm_1", From: treasury, To: alice, Mint: mint, Amount: 750}
	require.NoError(t, bank.Transfer(ctx, req))

	// Replaying the same request is a no-op.
	require.NoError(t, bank.Transfer(ctx, req))

	got, err := bank.Balance(ctx, treasury, mint)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got)
	got, err = bank.Balance(ctx, alice, mint)
	require.NoError(t, err)
	assert.Equal(t, int64(750), got)

	req.Amount = 10
	assert.ErrorIs(t, bank.Transfer(ctx, req), gateway.ErrIdempotencyConflict)
}

func TestTransferInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	bank := memory.New()
	treasury, alice, mint := address.Random(), address.Random(), address.Random()
	require.NoError(t, bank.Deposit(ctx, treasury, mint, 100))

	err := bank.Transfer(ctx, gateway.TransferRequest{ID: "clm_2", From: treasury, To: alice, Mint: mint, Amount: 101})
	assert.ErrorIs(t, err, gateway.ErrInsufficientFunds)

	got, err := bank.Balance(ctx, treasury, mint)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	// A failed ID is not remembered, so it can be retried once funded.
	require.NoError(t, bank.Deposit(ctx, treasury, mint, 1))
	require.NoError(t, bank.Transfer(ctx, gateway.TransferRequest{ID: "clm_2", From: treasury, To: alice, Mint: mint, Amount: 101}))
}

func TestTransferValidation(t *testing.T) {
	ctx := context.Background()
	bank := memory.New()
	a := address.Random()

	for _, req := range []gateway.TransferRequest{
		{From: a, To: address.Random(), Amount: 1},
		{ID: "x", From: a, To: address.Random()},
		{ID: "x", From: a, To: a, Amount: 1},
	} {
		err := bank.Transfer(ctx, req)
		assert.ErrorIs(t, err, gateway.ErrInvalidRequest)
		assert.True(t, gateway.IsDefinitive(err))
	}
	assert.Error(t, bank.Deposit(ctx, a, address.Random(), 0))
}

func TestIsDefinitive(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{gateway.ErrInsufficientFunds, true},
		{gateway.ErrIdempotencyConflict, true},
		{gateway.ErrRejected, true},
		{fmt.Errorf("wrapped: %w", gateway.ErrInvalidRequest), true},
		{gateway.ErrTransferFailed, false},
		{errors.New("i/o timeout"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gateway.IsDefinitive(tt.err), tt.err.Error())
	}
}
