// Package redis provides a token bank backed by Redis. Balances are
// integer keys and every transfer runs as one Lua script, so a transfer
// is atomic across processes sharing the same Redis.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/gateway"
)

var (
	_ gateway.Gateway   = (*Bank)(nil)
	_ gateway.Depositor = (*Bank)(nil)
)

// DefaultPrefix namespaces every key the bank writes.
const DefaultPrefix = "vesting:bank:"

// transferScript returns 0 on success, 1 when the ID was already applied
// with the same fingerprint, -1 on insufficient funds and -2 when the ID
// was applied with a different fingerprint.
//
// KEYS: from balance, to balance, idempotency key
// ARGV: amount, fingerprint
var transferScript = redis.NewScript(`
local seen = redis.call('GET', KEYS[3])
if seen then
  if seen == ARGV[2] then
    return 1
  end
  return -2
end
local amount = tonumber(ARGV[1])
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
if balance < amount then
  return -1
end
redis.call('DECRBY', KEYS[1], amount)
redis.call('INCRBY', KEYS[2], amount)
redis.call('SET', KEYS[3], ARGV[2])
return 0
`)

// Bank implements gateway.Gateway on a Redis client.
type Bank struct {
	client redis.UniversalClient
	prefix string
}

// Option configures a Bank.
type Option func(*Bank)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(b *Bank) { b.prefix = prefix }
}

// New returns a bank on client.
func New(client redis.UniversalClient, opts ...Option) *Bank {
	b := &Bank{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bank) balanceKey(owner, mint address.Address) string {
	return b.prefix + "bal:" + mint.String() + ":" + owner.String()
}

func (b *Bank) transferKey(id string) string {
	return b.prefix + "xfer:" + id
}

func (b *Bank) Transfer(ctx context.Context, req gateway.TransferRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	keys := []string{
		b.balanceKey(req.From, req.Mint),
		b.balanceKey(req.To, req.Mint),
		b.transferKey(req.ID),
	}
	code, err := transferScript.Run(ctx, b.client, keys, req.Amount, req.Fingerprint()).Int()
	if err != nil {
		return fmt.Errorf("%w: redis: %w", gateway.ErrTransferFailed, err)
	}

	switch code {
	case 0, 1:
		return nil
	case -1:
		return gateway.ErrInsufficientFunds
	case -2:
		return gateway.ErrIdempotencyConflict
	default:
		return fmt.Errorf("%w: unexpected script result %d", gateway.ErrTransferFailed, code)
	}
}

func (b *Bank) Balance(ctx context.Context, owner, mint address.Address) (int64, error) {
	n, err := b.client.Get(ctx, b.balanceKey(owner, mint)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis bank: balance: %w", err)
	}
	return n, nil
}

func (b *Bank) Deposit(ctx context.Context, owner, mint address.Address, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("redis bank: deposit amount %d must be positive", amount)
	}
	if err := b.client.IncrBy(ctx, b.balanceKey(owner, mint), amount).Err(); err != nil {
		return fmt.Errorf("redis bank: deposit: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (b *Bank) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
