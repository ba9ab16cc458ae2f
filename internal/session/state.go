// Package session holds the per-browser state of the sign-in flow: the
// pending CAPTCHA answer, failed-attempt counters and, once a code has been
// verified, the signed-in user.
package session

import (
	"time"

	"github.com/arcoapp/arco-admin/internal/model"
)

// State is the flow state of one client session. It is loaded from a Store
// at the start of a request, mutated by the auth service and saved back.
type State struct {
	Captcha       string             `json:"captcha,omitempty"`
	LoginAttempts map[string]int     `json:"login_attempts,omitempty"`
	User          *model.SessionUser `json:"user,omitempty"`
	Audience      model.Audience     `json:"audience,omitempty"`
	SignedInAt    *time.Time         `json:"signed_in_at,omitempty"`
}

// New returns an empty state.
func New() *State {
	return &State{LoginAttempts: map[string]int{}}
}

// Attempts returns the failed password checks for username since its last
// successful login.
func (s *State) Attempts(username string) int {
	return s.LoginAttempts[username]
}

// RecordFailure increments the failed-attempt counter of username.
func (s *State) RecordFailure(username string) {
	if s.LoginAttempts == nil {
		s.LoginAttempts = map[string]int{}
	}
	s.LoginAttempts[username]++
}

// ResetAttempts clears the failed-attempt counter of username.
func (s *State) ResetAttempts(username string) {
	delete(s.LoginAttempts, username)
}

// SignIn records u as the authenticated user of this session.
func (s *State) SignIn(u *model.SessionUser, audience model.Audience, at time.Time) {
	s.User = u
	s.Audience = audience
	s.SignedInAt = &at
}

// SignedIn reports whether a user has completed verification in this session.
func (s *State) SignedIn() bool {
	return s.User != nil
}

// IsAdmin reports whether the signed-in user is an admin who signed in
// through the admin flow.
func (s *State) IsAdmin() bool {
	return s.User != nil && s.User.Role == model.RoleAdmin && s.Audience == model.AudienceAdmin
}

// Clear drops everything, as on logout.
func (s *State) Clear() {
	*s = State{LoginAttempts: map[string]int{}}
}
