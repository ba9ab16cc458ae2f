package session

import (
	"context"
	"net/http"
)

// Manager ties a Store to the session cookie.
type Manager struct {
	Store  Store
	Cookie Cookie
}

// Load returns the session ID and state of r. A request without a cookie
// gets an empty state and an empty ID; Save assigns one.
func (m *Manager) Load(r *http.Request) (string, *State, error) {
	id := m.Cookie.Read(r)
	if id == "" {
		return "", New(), nil
	}
	st, err := m.Store.Load(r.Context(), id)
	if err != nil {
		return "", nil, err
	}
	return id, st, nil
}

// Save stores st under id, allocating a new ID when id is empty, and
// refreshes the cookie. It must run before the response body is written.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, id string, st *State) (string, error) {
	if id == "" {
		id = NewID()
	}
	if err := m.Store.Save(ctx, id, st); err != nil {
		return "", err
	}
	m.Cookie.Write(w, id)
	return id, nil
}

// Rotate moves st to a fresh ID and drops the old one, so an ID observed
// before sign-in is worthless afterwards.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, oldID string, st *State) (string, error) {
	if oldID != "" {
		if err := m.Store.Delete(ctx, oldID); err != nil {
			return "", err
		}
	}
	return m.Save(ctx, w, "", st)
}

// Destroy deletes the session and expires its cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, id string) error {
	m.Cookie.Clear(w)
	if id == "" {
		return nil
	}
	return m.Store.Delete(ctx, id)
}
