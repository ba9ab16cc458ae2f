package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arcoapp/arco-admin/internal/model"
)

func TestUpsertAndFindCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "alice", model.RoleAdmin)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	hash := HashCode("123456")
	if err := s.UpsertCode(ctx, u.ID, hash, now.Add(15*time.Minute), now); err != nil {
		t.Fatalf("UpsertCode: %v", err)
	}

	got, err := s.FindValidCode(ctx, u.ID, hash, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("FindValidCode: %v", err)
	}
	if got.UserID != u.ID {
		t.Errorf("UserID = %d, want %d", got.UserID, u.ID)
	}

	tests := []struct {
		name   string
		userID int64
		hash   string
		at     time.Time
	}{
		{"wrong code", u.ID, HashCode("654321"), now.Add(time.Minute)},
		{"wrong user", u.ID + 1, hash, now.Add(time.Minute)},
		{"at expiry", u.ID, hash, now.Add(15 * time.Minute)},
		{"after expiry", u.ID, hash, now.Add(16 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.FindValidCode(ctx, tt.userID, tt.hash, tt.at); !errors.Is(err, ErrNotFound) {
				t.Errorf("FindValidCode error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestUpsertCodeReplacesPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "bob", model.RoleUser)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	first, second := HashCode("111111"), HashCode("222222")
	if err := s.UpsertCode(ctx, u.ID, first, now.Add(15*time.Minute), now); err != nil {
		t.Fatalf("UpsertCode first: %v", err)
	}
	if err := s.UpsertCode(ctx, u.ID, second, now.Add(20*time.Minute), now.Add(5*time.Minute)); err != nil {
		t.Fatalf("UpsertCode second: %v", err)
	}

	if _, err := s.FindValidCode(ctx, u.ID, first, now.Add(6*time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Errorf("first code should be invalidated, got err = %v", err)
	}
	got, err := s.GetCode(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if got.CodeHash != second {
		t.Errorf("stored hash is not the second code")
	}
	if !got.ExpiresAt.Equal(now.Add(20 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, now.Add(20*time.Minute))
	}
}

func TestConsumeCodeOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "carol", model.RoleUser)

	now := time.Now().UTC()
	hash := HashCode("000042")
	if err := s.UpsertCode(ctx, u.ID, hash, now.Add(15*time.Minute), now); err != nil {
		t.Fatalf("UpsertCode: %v", err)
	}

	ok, err := s.ConsumeCode(ctx, u.ID, hash)
	if err != nil || !ok {
		t.Fatalf("first ConsumeCode = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.ConsumeCode(ctx, u.ID, hash)
	if err != nil || ok {
		t.Errorf("second ConsumeCode = %v, %v; want false, nil", ok, err)
	}
}

func TestDeleteCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "dave", model.RoleUser)

	if err := s.DeleteCode(ctx, u.ID); err != nil {
		t.Fatalf("DeleteCode on missing code: %v", err)
	}

	now := time.Now().UTC()
	if err := s.UpsertCode(ctx, u.ID, HashCode("123123"), now.Add(time.Minute), now); err != nil {
		t.Fatalf("UpsertCode: %v", err)
	}
	if err := s.DeleteCode(ctx, u.ID); err != nil {
		t.Fatalf("DeleteCode: %v", err)
	}
	if _, err := s.GetCode(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCode after delete error = %v, want ErrNotFound", err)
	}
}

func TestPurgeExpiredCodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	live := createUser(t, s, "erin", model.RoleUser)
	stale := createUser(t, s, "frank", model.RoleUser)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s.UpsertCode(ctx, live.ID, HashCode("1"), now.Add(time.Minute), now)
	s.UpsertCode(ctx, stale.ID, HashCode("2"), now.Add(-time.Minute), now.Add(-16*time.Minute))

	n, err := s.PurgeExpiredCodes(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpiredCodes: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if _, err := s.GetCode(ctx, live.ID); err != nil {
		t.Errorf("live code should remain: %v", err)
	}
}

func TestHashCode(t *testing.T) {
	if HashCode("123456") == HashCode("123457") {
		t.Error("different codes hashed equal")
	}
	if len(HashCode("000000")) != 64 {
		t.Errorf("hash length = %d, want 64", len(HashCode("000000")))
	}
}
