package mysql

import (
	"context"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// MySQL server error numbers.
const (
	errDupFieldName = 1060
	errDupKeyName   = 1061
	errDupEntry     = 1062
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		is_archived TINYINT(1) NOT NULL DEFAULT 0,
		security_question VARCHAR(255) NOT NULL DEFAULT '',
		security_answer_hash VARCHAR(255) NOT NULL DEFAULT '',
		last_login_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS verification_codes (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		code_hash CHAR(64) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		CONSTRAINT fk_verification_codes_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS feedback (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NULL,
		name VARCHAR(100) NOT NULL DEFAULT 'Anonymous',
		message TEXT NOT NULL,
		rating INT NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		is_archived TINYINT(1) NOT NULL DEFAULT 0,
		archived_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		CONSTRAINT fk_feedback_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	// MySQL has no CREATE INDEX IF NOT EXISTS; a duplicate name counts as applied.
	`CREATE INDEX idx_users_role ON users(role)`,
	`CREATE INDEX idx_feedback_created_at ON feedback(created_at)`,
}

// Migrations returns the idempotent DDL statements for the MySQL schema.
func (c *MySQLConnector) Migrations() []string { return migrations }

// IsAlreadyApplied reports whether a migration error means the object
// already exists.
func (c *MySQLConnector) IsAlreadyApplied(err error) bool {
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) {
		return me.Number == errDupFieldName || me.Number == errDupKeyName
	}
	return false
}

// UpsertCodeQuery returns the single-statement insert-or-replace for a
// user's verification code. Arguments: user_id, code_hash, expires_at,
// created_at.
func (c *MySQLConnector) UpsertCodeQuery() string {
	return `INSERT INTO verification_codes (user_id, code_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			code_hash = VALUES(code_hash),
			expires_at = VALUES(expires_at),
			created_at = VALUES(created_at)`
}

// InsertReturningID runs an INSERT and returns the AUTO_INCREMENT id.
func (c *MySQLConnector) InsertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
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
func (c *MySQLConnector) LimitOffset(limit, offset int) string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

// IsUniqueViolation reports whether err is a duplicate-entry error.
func (c *MySQLConnector) IsUniqueViolation(err error) bool {
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}
