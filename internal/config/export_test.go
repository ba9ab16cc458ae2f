package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arcoapp/arco-admin/internal/model"
)

// GetCode returns the stored code record of a user regardless of expiry.
func (s *Store) GetCode(ctx context.Context, userID int64) (*model.VerificationCode, error) {
	var c model.VerificationCode
	const q = `SELECT id, user_id, code_hash, expires_at, created_at
		FROM verification_codes WHERE user_id = ?`
	if err := s.db.GetContext(ctx, &c, s.q(q), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get verification code: %w", err)
	}
	return &c, nil
}
