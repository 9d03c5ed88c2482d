package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the identity schema. Statements are idempotent so the
// migrate command can run on every deploy.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS identity`,
		`CREATE TABLE IF NOT EXISTS identity.accounts (
			id                  TEXT PRIMARY KEY,
			email               TEXT,
			phone               TEXT,
			password_hash       TEXT,
			name                TEXT,
			bio                 TEXT,
			role                TEXT NOT NULL DEFAULT '',
			registration_method TEXT NOT NULL,
			account_type        TEXT NOT NULL,
			phone_verified      BOOLEAN NOT NULL DEFAULT FALSE,
			email_verified      BOOLEAN NOT NULL DEFAULT FALSE,
			can_link_email      BOOLEAN NOT NULL DEFAULT FALSE,
			profile_completed   BOOLEAN NOT NULL DEFAULT FALSE,
			password_changed_at TIMESTAMPTZ,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login          TIMESTAMPTZ,
			CHECK (email IS NOT NULL OR phone IS NOT NULL)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key
			ON identity.accounts (lower(email)) WHERE email IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS accounts_phone_key
			ON identity.accounts (phone) WHERE phone IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS identity.verification_attempts (
			id          TEXT PRIMARY KEY,
			phone       TEXT NOT NULL,
			proof_kind  TEXT NOT NULL,
			proof_value TEXT NOT NULL,
			provider    TEXT NOT NULL,
			failures    INTEGER NOT NULL DEFAULT 0,
			expires_at  TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS verification_attempts_phone_created_idx
			ON identity.verification_attempts (phone, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
