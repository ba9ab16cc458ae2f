package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arcoapp/arco-admin/internal/model"
)

const feedbackSelect = `SELECT f.id, f.user_id, f.name, f.message, f.rating, f.is_read, f.is_archived,
	f.archived_at, f.created_at, u.username, u.email
	FROM feedback f LEFT JOIN users u ON u.id = f.user_id`

// CreateFeedback inserts a feedback entry. An empty name is stored as
// "Anonymous". ID and CreatedAt are populated after insert.
func (s *Store) CreateFeedback(ctx context.Context, f *model.Feedback) error {
	f.CreatedAt = time.Now().UTC()
	if f.Name == "" {
		f.Name = model.AnonymousName
	}

	const q = `INSERT INTO feedback (user_id, name, message, rating, is_read, is_archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := s.conn.InsertReturningID(ctx, q, f.UserID, f.Name, f.Message, f.Rating, false, false, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	f.ID = id
	return nil
}

// ListFeedback returns active or archived feedback, newest first. A limit of
// zero returns everything after offset.
func (s *Store) ListFeedback(ctx context.Context, archived bool, limit, offset int) ([]model.Feedback, error) {
	q := feedbackSelect + " WHERE f.is_archived = ? ORDER BY f.created_at DESC, f.id DESC"
	q += s.page(limit, offset)

	items := []model.Feedback{}
	if err := s.db.SelectContext(ctx, &items, s.q(q), archived); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

// GetFeedback returns a feedback entry by ID.
func (s *Store) GetFeedback(ctx context.Context, id int64) (*model.Feedback, error) {
	var f model.Feedback
	if err := s.db.GetContext(ctx, &f, s.q(feedbackSelect+" WHERE f.id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return &f, nil
}

// DeleteFeedback permanently removes a feedback entry.
func (s *Store) DeleteFeedback(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete feedback", "DELETE FROM feedback WHERE id = ?", id)
}

// MarkFeedbackRead flags a feedback entry as read.
func (s *Store) MarkFeedbackRead(ctx context.Context, id int64) error {
	return s.execOne(ctx, "mark feedback read", "UPDATE feedback SET is_read = ? WHERE id = ?", true, id)
}

// SetFeedbackArchived archives a feedback entry, stamping archived_at, or
// restores it and clears the stamp.
func (s *Store) SetFeedbackArchived(ctx context.Context, id int64, archived bool, now time.Time) error {
	var archivedAt *time.Time
	if archived {
		t := now.UTC()
		archivedAt = &t
	}
	return s.execOne(ctx, "set feedback archived",
		"UPDATE feedback SET is_archived = ?, archived_at = ? WHERE id = ?", archived, archivedAt, id)
}

// FeedbackStats returns the total, unread and archived counters.
func (s *Store) FeedbackStats(ctx context.Context) (*model.FeedbackStats, error) {
	var st model.FeedbackStats
	if err := s.count(ctx, &st.Total, "SELECT COUNT(*) FROM feedback"); err != nil {
		return nil, fmt.Errorf("count feedback: %w", err)
	}
	if err := s.count(ctx, &st.Unread, "SELECT COUNT(*) FROM feedback WHERE is_read = ? AND is_archived = ?", false, false); err != nil {
		return nil, fmt.Errorf("count unread feedback: %w", err)
	}
	if err := s.count(ctx, &st.Archived, "SELECT COUNT(*) FROM feedback WHERE is_archived = ?", true); err != nil {
		return nil, fmt.Errorf("count archived feedback: %w", err)
	}
	return &st, nil
}

func (s *Store) count(ctx context.Context, dst *int64, query string, args ...interface{}) error {
	return s.db.GetContext(ctx, dst, s.q(query), args...)
}
