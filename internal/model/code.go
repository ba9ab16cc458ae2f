package model

import "time"

// VerificationCode is the single live one-time code of a user. The raw code
// is never stored; only its SHA-256 hash is persisted.
type VerificationCode struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CodeHash  string    `json:"-" db:"code_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the code is no longer usable at now.
func (c *VerificationCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
