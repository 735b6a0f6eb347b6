package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the initial schema migration.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id                         TEXT PRIMARY KEY,
			name                       TEXT NOT NULL,
			email                      TEXT NOT NULL UNIQUE,
			phone                      TEXT NOT NULL,
			password_hash              TEXT NOT NULL,
			role                       TEXT NOT NULL DEFAULT 'user',
			total_earned               BIGINT NOT NULL DEFAULT 0,
			welcome_bonus              BIGINT NOT NULL DEFAULT 0,
			welcome_bonus_withdrawn    BOOLEAN NOT NULL DEFAULT FALSE,
			referred_by                TEXT,
			referral_code              TEXT UNIQUE,
			referral_commission_earned BIGINT NOT NULL DEFAULT 0,
			created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_users_referral_code ON users(referral_code);

		CREATE TABLE IF NOT EXISTS plan_progress (
			user_id          TEXT NOT NULL REFERENCES users(id),
			plan             TEXT NOT NULL,
			surveys_completed INT NOT NULL DEFAULT 0,
			completed        BOOLEAN NOT NULL DEFAULT FALSE,
			activated        BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at     TIMESTAMPTZ,
			PRIMARY KEY (user_id, plan)
		);

		CREATE TABLE IF NOT EXISTS activation_requests (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			plan         TEXT NOT NULL,
			payment_ref  TEXT NOT NULL,
			amount       BIGINT NOT NULL,
			status       TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_activation_requests_user_id ON activation_requests(user_id);
		CREATE INDEX IF NOT EXISTS idx_activation_requests_status ON activation_requests(status);

		CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			phone        TEXT NOT NULL,
			amount       BIGINT NOT NULL,
			fee          BIGINT NOT NULL,
			net_amount   BIGINT NOT NULL,
			type         TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_user_id ON withdrawal_requests(user_id);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_status ON withdrawal_requests(status);

		CREATE TABLE IF NOT EXISTS referral_commissions (
			user_id          TEXT NOT NULL REFERENCES users(id),
			referred_user_id TEXT NOT NULL,
			amount           BIGINT NOT NULL,
			status           TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, referred_user_id)
		);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
