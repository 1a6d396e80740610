package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/store/memory"
	"github.com/xraph/vesting/store/postgres"
	"github.com/xraph/vesting/store/sqlite"
)

// openStore opens the ledger store named by dsn:
//
//	""  or "memory"          in-memory store, lost on exit
//	sqlite:<path or URI>     SQLite file, e.g. sqlite:vesting.db
//	postgres://...           PostgreSQL
func openStore(ctx context.Context, dsn string) (store.Store, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return memory.New(), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		s, err := sqlite.Open(ctx, strings.TrimPrefix(dsn, "sqlite:"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported --database %q (want memory, sqlite:<path> or postgres://...)", redactDSN(dsn))
	}
}

// redactDSN drops everything after the scheme so credentials never reach
// logs or error messages.
func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	if i := strings.IndexByte(dsn, ':'); i >= 0 {
		return dsn[:i+1] + "..."
	}
	return dsn
}
