package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes.
const (
	uniqueViolation = "23505"
	duplicateColumn = "42701"
	duplicateObject = "42710"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		security_question TEXT NOT NULL DEFAULT '',
		security_answer_hash TEXT NOT NULL DEFAULT '',
		last_login_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS verification_codes (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		code_hash TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS feedback (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
		name TEXT NOT NULL DEFAULT 'Anonymous',
		message TEXT NOT NULL,
		rating INTEGER,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		archived_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at)`,
}

// Migrations returns the idempotent DDL statements for the PostgreSQL schema.
func (c *PostgresConnector) Migrations() []string { return migrations }

// IsAlreadyApplied reports whether a migration error means the object
// already exists.
func (c *PostgresConnector) IsAlreadyApplied(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == duplicateColumn || pgErr.Code == duplicateObject
	}
	return false
}

// UpsertCodeQuery returns the single-statement insert-or-replace for a
// user's verification code. Arguments: user_id, code_hash, expires_at,
// created_at.
func (c *PostgresConnector) UpsertCodeQuery() string {
	return `INSERT INTO verification_codes (user_id, code_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at`
}

// InsertReturningID runs an INSERT with a RETURNING clause; pgx does not
// implement LastInsertId.
func (c *PostgresConnector) InsertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	q := c.db.Rebind(query + " RETURNING id")
	if err := c.db.QueryRowxContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// LimitOffset returns the pagination clause.
func (c *PostgresConnector) LimitOffset(limit, offset int) string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

// IsUniqueViolation reports whether err is a unique_violation.
func (c *PostgresConnector) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
