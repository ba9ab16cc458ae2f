package sqlite

import (
	"context"
	"fmt"
	"strings"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		is_archived INTEGER NOT NULL DEFAULT 0,
		security_question TEXT NOT NULL DEFAULT '',
		security_answer_hash TEXT NOT NULL DEFAULT '',
		last_login_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS verification_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		code_hash TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		name TEXT NOT NULL DEFAULT 'Anonymous',
		message TEXT NOT NULL,
		rating INTEGER,
		is_read INTEGER NOT NULL DEFAULT 0,
		is_archived INTEGER NOT NULL DEFAULT 0,
		archived_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at)`,
}

// Migrations returns the idempotent DDL statements for the SQLite schema.
func (c *SQLiteConnector) Migrations() []string { return migrations }

// IsAlreadyApplied reports whether a migration error means the change is
// already present. SQLite rejects ADD COLUMN for an existing column.
func (c *SQLiteConnector) IsAlreadyApplied(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column")
}

// UpsertCodeQuery returns the single-statement insert-or-replace for a
// user's verification code. Arguments: user_id, code_hash, expires_at,
// created_at.
func (c *SQLiteConnector) UpsertCodeQuery() string {
	return `INSERT INTO verification_codes (user_id, code_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			code_hash = excluded.code_hash,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`
}

// InsertReturningID runs an INSERT and returns the new row id.
func (c *SQLiteConnector) InsertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// LimitOffset returns the pagination clause.
func (c *SQLiteConnector) LimitOffset(limit, offset int) string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint.
func (c *SQLiteConnector) IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
