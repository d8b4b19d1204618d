package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the points store.
var Migrations = migrate.NewGroup("points")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_points_accounts",
			Version: "20240301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS points_accounts (
    user_id          TEXT PRIMARY KEY,
    purchased_points BIGINT NOT NULL DEFAULT 0 CHECK (purchased_points >= 0),
    free_points      BIGINT NOT NULL DEFAULT 0 CHECK (free_points >= 0),
    last_claim_at    TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS points_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "index_points_accounts_last_claim",
			Version: "20240301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE INDEX IF NOT EXISTS idx_points_accounts_last_claim ON points_accounts (last_claim_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP INDEX IF EXISTS idx_points_accounts_last_claim`)
				return err
			},
		},
	)
}
