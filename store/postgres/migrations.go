package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Vesting store.
var Migrations = migrate.NewGroup("vesting")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_vesting_accounts",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vesting_accounts (
    address          TEXT PRIMARY KEY,
    bump             SMALLINT NOT NULL,
    owner            TEXT NOT NULL,
    company_name     TEXT NOT NULL,
    mint             TEXT NOT NULL,
    treasury_address TEXT NOT NULL,
    treasury_bump    SMALLINT NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vesting_accounts_company ON vesting_accounts (owner, company_name);
CREATE INDEX IF NOT EXISTS idx_vesting_accounts_created ON vesting_accounts (created_at, address);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vesting_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vesting_employees",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vesting_employees (
    address         TEXT PRIMARY KEY,
    bump            SMALLINT NOT NULL,
    beneficiary     TEXT NOT NULL,
    vesting_account TEXT NOT NULL REFERENCES vesting_accounts (address),
    start_time      BIGINT NOT NULL,
    cliff_time      BIGINT NOT NULL,
    end_time        BIGINT NOT NULL,
    total_amount    BIGINT NOT NULL,
    total_withdrawn BIGINT NOT NULL DEFAULT 0,
    version         BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (start_time <= cliff_time AND cliff_time <= end_time),
    CHECK (total_amount > 0),
    CHECK (total_withdrawn >= 0 AND total_withdrawn <= total_amount)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vesting_employees_pair ON vesting_employees (vesting_account, beneficiary);
CREATE INDEX IF NOT EXISTS idx_vesting_employees_beneficiary ON vesting_employees (beneficiary, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vesting_employees`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vesting_claims",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vesting_claims (
    id               TEXT PRIMARY KEY,
    employee_account TEXT NOT NULL REFERENCES vesting_employees (address),
    vesting_account  TEXT NOT NULL,
    beneficiary      TEXT NOT NULL,
    treasury         TEXT NOT NULL,
    mint             TEXT NOT NULL,
    amount           BIGINT NOT NULL,
    withdrawn_before BIGINT NOT NULL,
    version_before   BIGINT NOT NULL,
    claimed_at       BIGINT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    reason           TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vesting_claims_employee ON vesting_claims (employee_account, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_vesting_claims_pending ON vesting_claims (status) WHERE status = 'pending';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vesting_claims`)
				return err
			},
		},
	)
}
