package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Recur store.
var Migrations = migrate.NewGroup("recur")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_recur_plans",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_plans (
    id            BIGINT PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    billing_plans JSONB NOT NULL DEFAULT '[]',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_recur_plans_created ON recur_plans (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_plans`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_recur_price_feeds",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_price_feeds (
    token      TEXT PRIMARY KEY,
    feed       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_price_feeds`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_recur_subscriptions",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_subscriptions (
    id               BIGINT PRIMARY KEY,
    account          TEXT NOT NULL DEFAULT '',
    plan_id          BIGINT NOT NULL DEFAULT 0,
    payment_token    TEXT NOT NULL DEFAULT '',
    start_time       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    next_charge_time TIMESTAMPTZ,
    status           TEXT NOT NULL DEFAULT 'pending',
    billing_cycle    INT NOT NULL DEFAULT 0,
    billing_plan     JSONB NOT NULL DEFAULT '{}',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_recur_subs_account_plan ON recur_subscriptions (account, plan_id);
CREATE INDEX IF NOT EXISTS idx_recur_subs_account ON recur_subscriptions (account, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_recur_charge_days",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_charge_days (
    id              BIGSERIAL PRIMARY KEY,
    day             TIMESTAMPTZ NOT NULL,
    subscription_id BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recur_charge_days_day ON recur_charge_days (day, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_charge_days`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_recur_charges",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_charges (
    id              TEXT PRIMARY KEY,
    subscription_id BIGINT NOT NULL DEFAULT 0,
    account         TEXT NOT NULL DEFAULT '',
    cycle           INT NOT NULL DEFAULT 0,
    token           TEXT NOT NULL DEFAULT '',
    amount          NUMERIC(78,0) NOT NULL DEFAULT 0,
    fee             NUMERIC(78,0) NOT NULL DEFAULT 0,
    charged_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_recur_charges_sub ON recur_charges (subscription_id, charged_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_charges`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_recur_claimables",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_claimables (
    token      TEXT PRIMARY KEY,
    amount     NUMERIC(78,0) NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS recur_claims (
    id         TEXT PRIMARY KEY,
    token      TEXT NOT NULL DEFAULT '',
    amount     NUMERIC(78,0) NOT NULL DEFAULT 0,
    to_address TEXT NOT NULL DEFAULT '',
    claimed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_recur_claims_token ON recur_claims (token, claimed_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_claims; DROP TABLE IF EXISTS recur_claimables`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_recur_counters",
			Version: "20240101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_counters (
    name  TEXT PRIMARY KEY,
    value BIGINT NOT NULL DEFAULT 0
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_counters`)
				return err
			},
		},
	)
}
