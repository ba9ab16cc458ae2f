package config

import (
	"context"
	"fmt"
)

// Migrate applies the connector's schema statements in order. Every
// statement is idempotent, so Migrate is safe to run on each start.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range s.conn.Migrations() {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			if s.conn.IsAlreadyApplied(err) {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
