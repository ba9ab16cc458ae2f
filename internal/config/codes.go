package config

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/arcoapp/arco-admin/internal/model"
)

// UpsertCode stores codeHash as the single live verification code of a
// user, replacing any code issued before. The dialect's upsert is one
// statement, so concurrent issues for the same user leave exactly one row.
func (s *Store) UpsertCode(ctx context.Context, userID int64, codeHash string, expiresAt, now time.Time) error {
	if _, err := s.db.ExecContext(ctx, s.q(s.conn.UpsertCodeQuery()), userID, codeHash, expiresAt.UTC(), now.UTC()); err != nil {
		return fmt.Errorf("upsert verification code: %w", err)
	}
	return nil
}

// FindValidCode returns the code of userID whose hash equals codeHash and
// whose expiry is after now. Wrong code, wrong user and expiry all return
// ErrNotFound.
func (s *Store) FindValidCode(ctx context.Context, userID int64, codeHash string, now time.Time) (*model.VerificationCode, error) {
	var c model.VerificationCode
	const q = `SELECT id, user_id, code_hash, expires_at, created_at
		FROM verification_codes WHERE user_id = ? AND code_hash = ? AND expires_at > ?`
	if err := s.db.GetContext(ctx, &c, s.q(q), userID, codeHash, now.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find verification code: %w", err)
	}
	return &c, nil
}

// DeleteCode removes the code of a user, revoking a sign-in in flight.
// Deleting a code that does not exist is not an error.
func (s *Store) DeleteCode(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, s.q("DELETE FROM verification_codes WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}

// ConsumeCode deletes the code of userID only if it still has codeHash. It
// reports whether this call removed it, so two concurrent verifications of
// the same code cannot both succeed.
func (s *Store) ConsumeCode(ctx context.Context, userID int64, codeHash string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		s.q("DELETE FROM verification_codes WHERE user_id = ? AND code_hash = ?"), userID, codeHash)
	if err != nil {
		return false, fmt.Errorf("consume verification code: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume verification code rows affected: %w", err)
	}
	return n > 0, nil
}

// PurgeExpiredCodes deletes every code whose expiry is at or before now and
// returns how many were removed.
func (s *Store) PurgeExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.q("DELETE FROM verification_codes WHERE expires_at <= ?"), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge verification codes: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// HashCode returns the hex-encoded SHA-256 hash of a raw verification code.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}
