package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/arcoapp/arco-admin/internal/connector"
)

// SQLiteConnector implements connector.Connector for SQLite databases.
type SQLiteConnector struct {
	db *sqlx.DB
}

// New creates a new SQLiteConnector.
func New() connector.Connector {
	return &SQLiteConnector{}
}

// Connect opens the SQLite database file named by the DSN. Use ":memory:"
// for a throwaway in-memory database. Writes are serialized through a
// single connection.
func (c *SQLiteConnector) Connect(cfg connector.ConnectionConfig) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("sqlite connect: %w", err)
	}

	connector.ApplyPool(db, cfg)
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	c.db = db
	return nil
}

// Disconnect closes the database connection.
func (c *SQLiteConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *SQLiteConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *SQLiteConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for SQLite.
func (c *SQLiteConnector) DriverName() string { return "sqlite" }

// QuoteIdentifier wraps a SQL identifier in double quotes.
func (c *SQLiteConnector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
