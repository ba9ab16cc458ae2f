package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/arcoapp/arco-admin/internal/config"
	"github.com/arcoapp/arco-admin/internal/model"
)

// DefaultRecentLimit is how many entries get_recent_feedback returns by default.
const DefaultRecentLimit = 5

// MaxFeedbackLength bounds the message of a feedback entry.
const MaxFeedbackLength = 5000

// FeedbackService handles feedback from app users and the admin views of
// it, plus the dashboard counters.
type FeedbackService struct {
	store  *config.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewFeedbackService returns a FeedbackService.
func NewFeedbackService(store *config.Store, logger *slog.Logger) *FeedbackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackService{store: store, logger: logger, now: time.Now}
}

// FeedbackInput is a submission. Ratings outside 1..5 are stored as no
// rating; an empty name is stored as Anonymous.
type FeedbackInput struct {
	UserID  *int64
	Name    string
	Message string
	Rating  *int
}

// Submit stores a feedback entry.
func (s *FeedbackService) Submit(ctx context.Context, in FeedbackInput) (*model.Feedback, error) {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return nil, fail(ErrInvalidInput, "Message cannot be empty")
	}
	if len(msg) > MaxFeedbackLength {
		return nil, fail(ErrInvalidInput, "Message is too long")
	}
	if in.UserID != nil {
		if *in.UserID <= 0 {
			return nil, fail(ErrInvalidInput, "Invalid user ID")
		}
		if _, err := s.store.GetUserByID(ctx, *in.UserID); err != nil {
			if errors.Is(err, config.ErrNotFound) {
				return nil, fail(ErrInvalidInput, "Invalid user ID")
			}
			return nil, unavailable(err)
		}
	}
	rating := in.Rating
	if rating != nil && (*rating < 1 || *rating > 5) {
		rating = nil
	}

	f := &model.Feedback{
		UserID:  in.UserID,
		Name:    strings.TrimSpace(in.Name),
		Message: msg,
		Rating:  rating,
	}
	if err := s.store.CreateFeedback(ctx, f); err != nil {
		return nil, unavailable(err)
	}
	s.logger.Info("feedback received", "feedback_id", f.ID)
	return f, nil
}

// List returns active feedback, newest first. A zero limit returns all.
func (s *FeedbackService) List(ctx context.Context, limit, offset int) ([]model.Feedback, error) {
	return s.list(ctx, false, limit, offset)
}

// Recent returns the newest active entries, DefaultRecentLimit when limit
// is not positive.
func (s *FeedbackService) Recent(ctx context.Context, limit int) ([]model.Feedback, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.list(ctx, false, limit, 0)
}

// Archived returns archived feedback, newest first.
func (s *FeedbackService) Archived(ctx context.Context, limit, offset int) ([]model.Feedback, error) {
	return s.list(ctx, true, limit, offset)
}

func (s *FeedbackService) list(ctx context.Context, archived bool, limit, offset int) ([]model.Feedback, error) {
	if limit < 0 || offset < 0 {
		return nil, fail(ErrInvalidInput, "Limit and offset must not be negative")
	}
	items, err := s.store.ListFeedback(ctx, archived, limit, offset)
	if err != nil {
		return nil, unavailable(err)
	}
	return items, nil
}

// Get returns one entry.
func (s *FeedbackService) Get(ctx context.Context, id int64) (*model.Feedback, error) {
	if id <= 0 {
		return nil, fail(ErrInvalidInput, "Feedback ID required")
	}
	f, err := s.store.GetFeedback(ctx, id)
	if err != nil {
		return nil, storeError(err, "Feedback not found")
	}
	return f, nil
}

// Delete removes an entry permanently.
func (s *FeedbackService) Delete(ctx context.Context, id int64) error {
	return s.apply(ctx, id, "deleted", s.store.DeleteFeedback)
}

// MarkRead flags an entry as read.
func (s *FeedbackService) MarkRead(ctx context.Context, id int64) error {
	return s.apply(ctx, id, "marked read", s.store.MarkFeedbackRead)
}

// Archive hides an entry from the active list.
func (s *FeedbackService) Archive(ctx context.Context, id int64) error {
	return s.apply(ctx, id, "archived", func(ctx context.Context, id int64) error {
		return s.store.SetFeedbackArchived(ctx, id, true, s.now())
	})
}

// Restore moves an archived entry back to the active list.
func (s *FeedbackService) Restore(ctx context.Context, id int64) error {
	return s.apply(ctx, id, "restored", func(ctx context.Context, id int64) error {
		return s.store.SetFeedbackArchived(ctx, id, false, s.now())
	})
}

func (s *FeedbackService) apply(ctx context.Context, id int64, what string, fn func(context.Context, int64) error) error {
	if id <= 0 {
		return fail(ErrInvalidInput, "Feedback ID required")
	}
	if err := fn(ctx, id); err != nil {
		return storeError(err, "Feedback not found")
	}
	s.logger.Info("feedback "+what, "feedback_id", id)
	return nil
}

// Stats returns the feedback counters.
func (s *FeedbackService) Stats(ctx context.Context) (*model.FeedbackStats, error) {
	st, err := s.store.FeedbackStats(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return st, nil
}

// AdminStats returns the dashboard counters.
func (s *FeedbackService) AdminStats(ctx context.Context) (*model.AdminStats, error) {
	st, err := s.store.AdminStats(ctx, s.now())
	if err != nil {
		return nil, unavailable(err)
	}
	return st, nil
}
