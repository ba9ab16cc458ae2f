package mysql

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
)

func TestIsUniqueViolation(t *testing.T) {
	c := New()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate entry", &mysqldriver.MySQLError{Number: errDupEntry, Message: "Duplicate entry"}, true},
		{"wrapped duplicate entry", fmt.Errorf("insert user: %w", &mysqldriver.MySQLError{Number: errDupEntry}), true},
		{"other server error", &mysqldriver.MySQLError{Number: 1146}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAlreadyApplied(t *testing.T) {
	c := New()
	if !c.IsAlreadyApplied(&mysqldriver.MySQLError{Number: errDupKeyName}) {
		t.Error("duplicate index name should count as applied")
	}
	if c.IsAlreadyApplied(&mysqldriver.MySQLError{Number: errDupEntry}) {
		t.Error("duplicate entry should not count as applied")
	}
}

func TestUpsertCodeQuery(t *testing.T) {
	q := New().UpsertCodeQuery()
	if !strings.Contains(q, "ON DUPLICATE KEY UPDATE") {
		t.Errorf("upsert query should use ON DUPLICATE KEY UPDATE, got:\n%s", q)
	}
	if n := strings.Count(q, "?"); n != 4 {
		t.Errorf("placeholders = %d, want 4", n)
	}
}

func TestWithParseTime(t *testing.T) {
	got, err := withParseTime("root:secret@tcp(localhost:3306)/arco")
	if err != nil {
		t.Fatalf("withParseTime: %v", err)
	}
	cfg, err := mysqldriver.ParseDSN(got)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", got, err)
	}
	if !cfg.ParseTime {
		t.Error("ParseTime should be enabled")
	}
	if cfg.DBName != "arco" {
		t.Errorf("DBName = %q, want %q", cfg.DBName, "arco")
	}
}

func TestLimitOffset(t *testing.T) {
	if got, want := New().LimitOffset(5, 0), " LIMIT 5 OFFSET 0"; got != want {
		t.Errorf("LimitOffset = %q, want %q", got, want)
	}
}
