package connector_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/arcoapp/arco-admin/internal/connector"
	"github.com/arcoapp/arco-admin/internal/connector/mssql"
	"github.com/arcoapp/arco-admin/internal/connector/mysql"
	"github.com/arcoapp/arco-admin/internal/connector/postgres"
)

// Integration tests run against real servers. Point the ARCO_TEST_*_DSN
// variables at disposable databases and set ARCO_INTEGRATION=1.
func TestMain(m *testing.M) {
	if os.Getenv("ARCO_INTEGRATION") == "" {
		fmt.Println("skipping integration tests: set ARCO_INTEGRATION=1 to run")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runConnectorSuite(t *testing.T, conn connector.Connector, cfg connector.ConnectionConfig) {
	t.Helper()
	if cfg.DSN == "" {
		t.Skipf("no DSN configured for %s", cfg.Driver)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.Connect(connector.ConnectionConfig{Driver: cfg.Driver, DSN: connector.SanitizeDSN(cfg.Driver, cfg.DSN)}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Disconnect()

	t.Run("Ping", func(t *testing.T) {
		if err := conn.Ping(ctx); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})

	t.Run("MigrateTwice", func(t *testing.T) {
		for pass := 0; pass < 2; pass++ {
			for _, m := range conn.Migrations() {
				if _, err := conn.DB().ExecContext(ctx, m); err != nil && !conn.IsAlreadyApplied(err) {
					t.Fatalf("pass %d: %v\n%s", pass, err, m)
				}
			}
		}
	})

	username := fmt.Sprintf("it_%d", time.Now().UnixNano())
	var uid int64

	t.Run("InsertReturningID", func(t *testing.T) {
		var err error
		uid, err = conn.InsertReturningID(ctx,
			`INSERT INTO users (username, password_hash, email) VALUES (?, ?, ?)`,
			username, "x", username+"@example.com")
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if uid == 0 {
			t.Fatal("expected non-zero id")
		}

		_, err = conn.InsertReturningID(ctx,
			`INSERT INTO users (username, password_hash, email) VALUES (?, ?, ?)`,
			username, "x", "dupe-"+username+"@example.com")
		if !conn.IsUniqueViolation(err) {
			t.Errorf("duplicate username: IsUniqueViolation(%v) = false", err)
		}
	})

	t.Run("UpsertCode", func(t *testing.T) {
		if uid == 0 {
			t.Skip("insert failed")
		}
		now := time.Now().UTC()
		q := conn.DB().Rebind(conn.UpsertCodeQuery())
		for i := 0; i < 2; i++ {
			if _, err := conn.DB().ExecContext(ctx, q, uid, fmt.Sprintf("hash-%d", i), now.Add(time.Minute), now); err != nil {
				t.Fatalf("upsert %d: %v", i, err)
			}
		}
		var n int
		if err := conn.DB().GetContext(ctx, &n, conn.DB().Rebind("SELECT COUNT(*) FROM verification_codes WHERE user_id = ?"), uid); err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 1 {
			t.Errorf("rows = %d, want 1", n)
		}
	})

	if uid != 0 {
		conn.DB().ExecContext(ctx, conn.DB().Rebind("DELETE FROM users WHERE id = ?"), uid)
	}
}

func TestPostgresIntegration(t *testing.T) {
	runConnectorSuite(t, postgres.New(), connector.ConnectionConfig{Driver: "postgres", DSN: os.Getenv("ARCO_TEST_POSTGRES_DSN")})
}

func TestMySQLIntegration(t *testing.T) {
	runConnectorSuite(t, mysql.New(), connector.ConnectionConfig{Driver: "mysql", DSN: os.Getenv("ARCO_TEST_MYSQL_DSN")})
}

func TestMSSQLIntegration(t *testing.T) {
	runConnectorSuite(t, mssql.New(), connector.ConnectionConfig{Driver: "mssql", DSN: os.Getenv("ARCO_TEST_MSSQL_DSN")})
}
