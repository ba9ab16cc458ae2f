package config

import (
	"context"
	"fmt"
	"time"

	"github.com/arcoapp/arco-admin/internal/model"
)

// Windows for the dashboard counters.
const (
	ActiveWindow = 24 * time.Hour
	RecentWindow = 7 * 24 * time.Hour
)

// AdminStats computes the dashboard counters as of now.
func (s *Store) AdminStats(ctx context.Context, now time.Time) (*model.AdminStats, error) {
	now = now.UTC()
	st := &model.AdminStats{UsersByRole: []model.RoleCount{}}

	counters := []struct {
		dst   *int64
		name  string
		query string
		args  []interface{}
	}{
		{&st.TotalUsers, "users", "SELECT COUNT(*) FROM users WHERE is_archived = ?", []interface{}{false}},
		{&st.ArchivedUsers, "archived users", "SELECT COUNT(*) FROM users WHERE is_archived = ?", []interface{}{true}},
		{&st.ActiveUsers, "active users", "SELECT COUNT(*) FROM users WHERE is_archived = ? AND last_login_at >= ?", []interface{}{false, now.Add(-ActiveWindow)}},
		{&st.RecentUsers, "recent users", "SELECT COUNT(*) FROM users WHERE created_at >= ?", []interface{}{now.Add(-RecentWindow)}},
		{&st.TotalFeedback, "feedback", "SELECT COUNT(*) FROM feedback", nil},
		{&st.UnreadFeedback, "unread feedback", "SELECT COUNT(*) FROM feedback WHERE is_read = ? AND is_archived = ?", []interface{}{false, false}},
	}
	for _, c := range counters {
		if err := s.count(ctx, c.dst, c.query, c.args...); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
	}

	q := s.q("SELECT role, COUNT(*) AS count FROM users WHERE is_archived = ? GROUP BY role ORDER BY role")
	if err := s.db.SelectContext(ctx, &st.UsersByRole, q, false); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	return st, nil
}
