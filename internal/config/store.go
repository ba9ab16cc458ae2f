package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arcoapp/arco-admin/internal/connector"
	"github.com/arcoapp/arco-admin/internal/connector/sqlite"
	"github.com/arcoapp/arco-admin/internal/model"
)

// Store is the persistence layer for user accounts, verification codes and
// feedback. It works against any connector; queries are written with ?
// placeholders and rebound for the driver.
type Store struct {
	conn connector.Connector
	db   *sqlx.DB
}

// NewStore wraps a connected connector and applies the schema migrations.
func NewStore(conn connector.Connector) (*Store, error) {
	s := &Store{conn: conn, db: conn.DB()}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// OpenSQLite opens a SQLite-backed store in dataDir. Pass empty string for
// an in-memory database.
func OpenSQLite(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "arco.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	conn := sqlite.New()
	if err := conn.Connect(connector.ConnectionConfig{Driver: "sqlite", DSN: dsn}); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s, err := NewStore(conn)
	if err != nil {
		conn.Disconnect()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Disconnect()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Driver returns the name of the database driver in use.
func (s *Store) Driver() string {
	return s.conn.DriverName()
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// page returns the paging clause of a listing. A zero limit means no limit,
// but a positive offset still skips rows.
func (s *Store) page(limit, offset int) string {
	switch {
	case limit > 0:
		return s.conn.LimitOffset(limit, offset)
	case offset > 0:
		return s.conn.LimitOffset(math.MaxInt32, offset)
	}
	return ""
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

const userColumns = `id, username, password_hash, email, first_name, last_name, role, is_archived,
	security_question, security_answer_hash, last_login_at, created_at, updated_at`

// CreateUser inserts a new account. The ID, CreatedAt and UpdatedAt fields
// are populated after a successful insert. A taken username or email
// returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = model.RoleUser
	}

	const q = `INSERT INTO users
		(username, password_hash, email, first_name, last_name, role, is_archived,
		 security_question, security_answer_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := s.conn.InsertReturningID(ctx, q,
		u.Username, u.PasswordHash, u.Email, u.FirstName, u.LastName, u.Role, u.IsArchived,
		u.SecurityQuestion, u.SecurityAnswerHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if s.conn.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

func (s *Store) getUser(ctx context.Context, where string, args ...interface{}) (*model.User, error) {
	var u model.User
	q := s.q("SELECT " + userColumns + " FROM users WHERE " + where)
	if err := s.db.GetContext(ctx, &u, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID returns a user by ID, archived or not.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.getUser(ctx, "id = ?", id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, err
}

// GetUserByUsername returns a user by exact username. Archived accounts are
// only returned when includeArchived is set.
func (s *Store) GetUserByUsername(ctx context.Context, username string, includeArchived bool) (*model.User, error) {
	var (
		u   *model.User
		err error
	)
	if includeArchived {
		u, err = s.getUser(ctx, "username = ?", username)
	} else {
		u, err = s.getUser(ctx, "username = ? AND is_archived = ?", username, false)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, err
}

// GetUserByLogin returns the user whose username or email equals login.
// A username match wins over an email match.
func (s *Store) GetUserByLogin(ctx context.Context, login string, includeArchived bool) (*model.User, error) {
	u, err := s.GetUserByUsername(ctx, login, includeArchived)
	if !errors.Is(err, ErrNotFound) {
		return u, err
	}
	if includeArchived {
		u, err = s.getUser(ctx, "email = ?", login)
	} else {
		u, err = s.getUser(ctx, "email = ? AND is_archived = ?", login, false)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, err
}

// UsernameOrEmailTaken reports whether any account, archived included,
// already uses username or email.
func (s *Store) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	var count int
	q := s.q("SELECT COUNT(*) FROM users WHERE username = ? OR email = ?")
	if err := s.db.GetContext(ctx, &count, q, username, email); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

// ListUsers returns accounts matching f, newest first.
func (s *Store) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	var (
		where []string
		args  []interface{}
	)
	switch {
	case f.ArchivedOnly:
		where = append(where, "is_archived = ?")
		args = append(args, true)
	case !f.IncludeArchived:
		where = append(where, "is_archived = ?")
		args = append(args, false)
	}
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, f.Role)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		where = append(where, "(LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)")
		args = append(args, like, like, like, like)
	}

	q := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	q += s.page(f.Limit, f.Offset)

	users := []model.User{}
	if err := s.db.SelectContext(ctx, &users, s.q(q), args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetUserArchived archives or restores an account.
func (s *Store) SetUserArchived(ctx context.Context, id int64, archived bool) error {
	return s.execOne(ctx, "set user archived",
		"UPDATE users SET is_archived = ?, updated_at = ? WHERE id = ?",
		archived, time.Now().UTC(), id)
}

// UpdatePassword replaces the stored password hash of an account.
func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return s.execOne(ctx, "update password",
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, time.Now().UTC(), id)
}

// UpdateLastLogin sets the last_login_at timestamp for an account.
func (s *Store) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return s.execOne(ctx, "update last login",
		"UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?",
		at.UTC(), time.Now().UTC(), id)
}

// HasAnyAdmin reports whether at least one active admin account exists.
// Used for first-run detection.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	q := s.q("SELECT COUNT(*) FROM users WHERE role = ? AND is_archived = ?")
	if err := s.db.GetContext(ctx, &count, q, model.RoleAdmin, false); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// execOne runs an UPDATE or DELETE that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
