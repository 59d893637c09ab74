package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// migrations are applied in order; each statement is idempotent.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "accounts table",
		sql: `
		CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(128) PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			telegram_id BIGINT UNIQUE,
			balance NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			daily_streak INT NOT NULL DEFAULT 0 CHECK (daily_streak >= 0),
			last_daily_claim_date DATE,
			free_game_points BIGINT NOT NULL DEFAULT 0 CHECK (free_game_points >= 0),
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_created ON accounts(created_at, id);
	`,
	},
	{
		name: "wallets table",
		sql: `
		CREATE TABLE IF NOT EXISTS wallets (
			account_id VARCHAR(128) PRIMARY KEY REFERENCES accounts(id) ON DELETE RESTRICT,
			currency VARCHAR(8) NOT NULL DEFAULT 'ETB',
			daily_transfer_limit NUMERIC(18,2) NOT NULL DEFAULT 1000,
			daily_transfer_used NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (daily_transfer_used >= 0),
			last_transfer_date DATE,
			is_locked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`,
	},
	{
		name: "transactions table",
		sql: `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			account_id VARCHAR(128) NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
			kind VARCHAR(20) NOT NULL CHECK (kind IN ('deposit','withdrawal','game_entry','game_win','bonus','transfer')),
			amount NUMERIC(18,2) NOT NULL,
			status VARCHAR(20) NOT NULL CHECK (status IN ('pending','completed','failed')),
			description TEXT NOT NULL DEFAULT '',
			reference VARCHAR(128) UNIQUE,
			counterparty_account_id VARCHAR(128) REFERENCES accounts(id) ON DELETE RESTRICT,
			paired_transaction_id UUID,
			payment_method VARCHAR(50),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			settled_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_account_time ON transactions(account_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_pending ON transactions(kind, status) WHERE status = 'pending';
	`,
	},
	{
		name: "player_stats table",
		sql: `
		CREATE TABLE IF NOT EXISTS player_stats (
			account_id VARCHAR(128) PRIMARY KEY REFERENCES accounts(id) ON DELETE RESTRICT,
			games_played BIGINT NOT NULL DEFAULT 0 CHECK (games_played >= 0),
			games_won BIGINT NOT NULL DEFAULT 0 CHECK (games_won >= 0),
			level BIGINT NOT NULL DEFAULT 1 CHECK (level >= 0),
			experience BIGINT NOT NULL DEFAULT 0 CHECK (experience >= 0),
			total_earnings NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (total_earnings >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`,
	},
	{
		name: "leaderboard_snapshots table",
		sql: `
		CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
			snapshot_key VARCHAR(64) PRIMARY KEY,
			period_type VARCHAR(16) NOT NULL,
			period VARCHAR(32) NOT NULL,
			entries JSONB NOT NULL DEFAULT '[]'::jsonb,
			generated_at TIMESTAMPTZ NOT NULL
		);
	`,
	},
	{
		name: "free_play_awards table",
		sql: `
		CREATE TABLE IF NOT EXISTS free_play_awards (
			account_id VARCHAR(128) NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
			session_token VARCHAR(128) NOT NULL,
			points BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (account_id, session_token)
		);
	`,
	},
}

// Migrate applies the ledger schema.
func Migrate(ctx context.Context, q Querier) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := q.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Msgf("Migration %d: %s created", i+1, m.name)
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
