package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/arcoapp/arco-admin/internal/connector"
)

// MySQLConnector implements connector.Connector for MySQL databases.
type MySQLConnector struct {
	db *sqlx.DB
}

// New creates a new MySQLConnector.
func New() connector.Connector {
	return &MySQLConnector{}
}

// Connect establishes a connection to the MySQL database. Timestamps are
// always parsed into time.Time in UTC regardless of what the DSN asks for,
// since code expiry compares against them.
func (c *MySQLConnector) Connect(cfg connector.ConnectionConfig) error {
	dsn, err := withParseTime(cfg.DSN)
	if err != nil {
		return fmt.Errorf("mysql dsn: %w", err)
	}

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	connector.ApplyPool(db, cfg)

	c.db = db
	return nil
}

func withParseTime(dsn string) (string, error) {
	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC
	return parsed.FormatDSN(), nil
}

// Disconnect closes the database connection pool.
func (c *MySQLConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *MySQLConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *MySQLConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for MySQL.
func (c *MySQLConnector) DriverName() string { return "mysql" }

// QuoteIdentifier wraps a SQL identifier in backticks.
func (c *MySQLConnector) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
