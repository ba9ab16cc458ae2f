package service

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and checks passwords and security answers with bcrypt.
type Hasher struct {
	Cost int
}

func (h Hasher) cost() int {
	if h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// Hash returns the bcrypt hash of secret.
func (h Hasher) Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Matches reports whether secret hashes to hash. An empty hash never matches.
func (h Hasher) Matches(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// HashAnswer hashes a security answer after normalizing case and
// surrounding whitespace.
func (h Hasher) HashAnswer(answer string) (string, error) {
	return h.Hash(normalizeAnswer(answer))
}

// AnswerMatches checks a security answer against its stored hash.
func (h Hasher) AnswerMatches(hash, answer string) bool {
	return h.Matches(hash, normalizeAnswer(answer))
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
