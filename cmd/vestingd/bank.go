package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/vesting/gateway"
	gwmemory "github.com/xraph/vesting/gateway/memory"
	gwredis "github.com/xraph/vesting/gateway/redis"
)

// bank is a gateway that can also credit balances.
type bank interface {
	gateway.Gateway
	gateway.Depositor
}

// openBank connects to the Redis bank at --redis-addr, or returns an
// in-memory bank when none is configured.
func openBank(ctx context.Context) (bank, func() error, error) {
	if flagMain.RedisAddr == "" {
		return gwmemory.New(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{Addr: flagMain.RedisAddr})
	b := gwredis.New(client)
	if err := b.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", flagMain.RedisAddr, err)
	}
	return b, client.Close, nil
}
