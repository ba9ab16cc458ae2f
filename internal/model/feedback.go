package model

import "time"

// AnonymousName is stored when feedback is submitted without a name.
const AnonymousName = "Anonymous"

// Feedback is a message left by an app user for the admins.
type Feedback struct {
	ID         int64      `json:"id" db:"id"`
	UserID     *int64     `json:"user_id" db:"user_id"`
	Name       string     `json:"name" db:"name"`
	Message    string     `json:"message" db:"message"`
	Rating     *int       `json:"rating" db:"rating"`
	IsRead     bool       `json:"is_read" db:"is_read"`
	IsArchived bool       `json:"is_archived" db:"is_archived"`
	ArchivedAt *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`

	// Joined from users when listing.
	Username *string `json:"username,omitempty" db:"username"`
	Email    *string `json:"email,omitempty" db:"email"`
}

// FeedbackStats are the counters shown on the feedback page.
type FeedbackStats struct {
	Total    int64 `json:"total" db:"total"`
	Unread   int64 `json:"unread" db:"unread"`
	Archived int64 `json:"archived" db:"archived"`
}

// RoleCount is one row of the users-by-role breakdown.
type RoleCount struct {
	Role  string `json:"role" db:"role"`
	Count int64  `json:"count" db:"count"`
}

// AdminStats are the dashboard counters.
type AdminStats struct {
	TotalUsers     int64       `json:"total_users"`
	ActiveUsers    int64       `json:"active_users"`
	RecentUsers    int64       `json:"recent_users"`
	ArchivedUsers  int64       `json:"archived_users"`
	UsersByRole    []RoleCount `json:"users_by_role"`
	TotalFeedback  int64       `json:"total_feedback"`
	UnreadFeedback int64       `json:"unread_feedback"`
}
