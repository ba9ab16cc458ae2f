package mssql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"
)

// SQL Server error numbers.
const (
	errUniqueIndex      = 2601
	errUniqueConstraint = 2627
	errObjectExists     = 2714
	errColumnExists     = 2705
	errIndexExists      = 1913
)

var migrations = []string{
	`IF OBJECT_ID(N'dbo.users', N'U') IS NULL
	CREATE TABLE dbo.users (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		username NVARCHAR(100) NOT NULL UNIQUE,
		password_hash NVARCHAR(255) NOT NULL,
		email NVARCHAR(255) NOT NULL UNIQUE,
		first_name NVARCHAR(100) NOT NULL DEFAULT '',
		last_name NVARCHAR(100) NOT NULL DEFAULT '',
		role NVARCHAR(20) NOT NULL DEFAULT 'user',
		is_archived BIT NOT NULL DEFAULT 0,
		security_question NVARCHAR(255) NOT NULL DEFAULT '',
		security_answer_hash NVARCHAR(255) NOT NULL DEFAULT '',
		last_login_at DATETIME2 NULL,
		created_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME(),
		updated_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
	)`,

	`IF OBJECT_ID(N'dbo.verification_codes', N'U') IS NULL
	CREATE TABLE dbo.verification_codes (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES dbo.users(id) ON DELETE CASCADE,
		code_hash CHAR(64) NOT NULL,
		expires_at DATETIME2 NOT NULL,
		created_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
	)`,

	`IF OBJECT_ID(N'dbo.feedback', N'U') IS NULL
	CREATE TABLE dbo.feedback (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		user_id BIGINT NULL REFERENCES dbo.users(id) ON DELETE SET NULL,
		name NVARCHAR(100) NOT NULL DEFAULT 'Anonymous',
		message NVARCHAR(MAX) NOT NULL,
		rating INT NULL,
		is_read BIT NOT NULL DEFAULT 0,
		is_archived BIT NOT NULL DEFAULT 0,
		archived_at DATETIME2 NULL,
		created_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
	)`,

	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = 'idx_users_role')
	CREATE INDEX idx_users_role ON dbo.users(role)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = 'idx_feedback_created_at')
	CREATE INDEX idx_feedback_created_at ON dbo.feedback(created_at)`,
}

// Migrations returns the idempotent DDL statements for the SQL Server schema.
func (c *MSSQLConnector) Migrations() []string { return migrations }

// IsAlreadyApplied reports whether a migration error means the object
// already exists.
func (c *MSSQLConnector) IsAlreadyApplied(err error) bool {
	var me mssqldb.Error
	if errors.As(err, &me) {
		switch me.Number {
		case errObjectExists, errColumnExists, errIndexExists:
			return true
		}
	}
	return false
}

// UpsertCodeQuery returns a MERGE that inserts or replaces a user's
// verification code. HOLDLOCK keeps two concurrent merges for the same
// user from both taking the insert branch. Arguments: user_id, code_hash,
// expires_at, created_at.
func (c *MSSQLConnector) UpsertCodeQuery() string {
	return `MERGE dbo.verification_codes WITH (HOLDLOCK) AS t
		USING (SELECT ? AS user_id, ? AS code_hash, ? AS expires_at, ? AS created_at) AS s
		ON t.user_id = s.user_id
		WHEN MATCHED THEN UPDATE SET
			code_hash = s.code_hash,
			expires_at = s.expires_at,
			created_at = s.created_at
		WHEN NOT MATCHED THEN
			INSERT (user_id, code_hash, expires_at, created_at)
			VALUES (s.user_id, s.code_hash, s.expires_at, s.created_at);`
}

// InsertReturningID runs an INSERT with an OUTPUT INSERTED.id clause. The
// query must have the form "INSERT INTO t (cols) VALUES (...)".
func (c *MSSQLConnector) InsertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	q := strings.Replace(query, ") VALUES", ") OUTPUT INSERTED.id VALUES", 1)
	var id int64
	if err := c.db.QueryRowxContext(ctx, c.db.Rebind(q), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// LimitOffset returns the pagination clause. SQL Server requires the
// surrounding query to carry an ORDER BY.
func (c *MSSQLConnector) LimitOffset(limit, offset int) string {
	return fmt.Sprintf(" OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
}

// IsUniqueViolation reports whether err is a unique index or constraint
// violation.
func (c *MSSQLConnector) IsUniqueViolation(err error) bool {
	var me mssqldb.Error
	if errors.As(err, &me) {
		return me.Number == errUniqueIndex || me.Number == errUniqueConstraint
	}
	return false
}
