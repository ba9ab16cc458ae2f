package model

import "time"

// Roles a user account can hold.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account of the budgeting application. Admins sign in through
// the web dashboard, everyone else through the mobile app. Accounts are
// soft-deleted with IsArchived and never removed.
type User struct {
	ID                 int64      `json:"id" db:"id"`
	Username           string     `json:"username" db:"username"`
	PasswordHash       string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Email              string     `json:"email" db:"email"`
	FirstName          string     `json:"first_name" db:"first_name"`
	LastName           string     `json:"last_name" db:"last_name"`
	Role               string     `json:"role" db:"role"`
	IsArchived         bool       `json:"is_archived" db:"is_archived"`
	SecurityQuestion   string     `json:"security_question,omitempty" db:"security_question"`
	SecurityAnswerHash string     `json:"-" db:"security_answer_hash"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Status returns "archived" or "active".
func (u *User) Status() string {
	if u.IsArchived {
		return StatusArchived
	}
	return StatusActive
}

// Audience is the client population an auth endpoint serves.
type Audience string

// Audiences. Admins use the web dashboard, everyone else the mobile app.
const (
	AudienceAdmin  Audience = "admin"
	AudienceMobile Audience = "mobile"
)

// Account status values accepted by update_status.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// SessionUser is the snapshot of a user stored in an authenticated session
// and returned to clients after verification.
type SessionUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// Snapshot returns the session view of u.
func (u *User) Snapshot() *SessionUser {
	return &SessionUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// UserFilter narrows ListUsers.
type UserFilter struct {
	Search          string // matched against username, email, first and last name
	Role            string
	IncludeArchived bool
	ArchivedOnly    bool
	Limit           int
	Offset          int
}
