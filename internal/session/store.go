package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("session store unavailable")

// DefaultTTL is how long an idle session lives.
const DefaultTTL = 30 * time.Minute

// Store persists session state between requests. Load returns a fresh
// empty State for unknown or expired IDs.
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, id string, st *State) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// NewID returns a new random session identifier.
func NewID() string {
	return uuid.NewString()
}

func encode(st *State) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*State, error) {
	st := New()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if st.LoginAttempts == nil {
		st.LoginAttempts = map[string]int{}
	}
	return st, nil
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Suitable for a single
// instance; use RedisStore when running more than one.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore creates a MemoryStore whose entries expire after ttl of
// inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load returns a copy of the stored state.
func (m *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok && !e.expires.After(m.now()) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return New(), nil
	}
	return decode(e.data)
}

// Save stores a copy of st and refreshes its expiry.
func (m *MemoryStore) Save(_ context.Context, id string, st *State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.entries[id] = memoryEntry{data: data, expires: now.Add(m.ttl)}
	if now.Sub(m.lastSweep) > m.ttl {
		m.sweepLocked(now)
	}
	return nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) sweepLocked(now time.Time) {
	for id, e := range m.entries {
		if !e.expires.After(now) {
			delete(m.entries, id)
		}
	}
	m.lastSweep = now
}
