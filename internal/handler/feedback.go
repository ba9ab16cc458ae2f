package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/service"
)

// Feedback actions.
const (
	ActionSubmit              Action = "submit"
	ActionGetFeedback         Action = "get_feedback"
	ActionGetRecentFeedback   Action = "get_recent_feedback"
	ActionGetFeedbackByID     Action = "get_feedback_by_id"
	ActionDeleteFeedback      Action = "delete_feedback"
	ActionMarkAsRead          Action = "mark_as_read"
	ActionArchiveFeedback     Action = "archive_feedback"
	ActionRestoreFeedback     Action = "restore_feedback"
	ActionGetArchivedFeedback Action = "get_archived_feedback"
	ActionGetFeedbackStats    Action = "get_feedback_stats"
)

// FeedbackActions is the closed action set of the admin feedback endpoint.
var FeedbackActions = []Action{
	ActionGetFeedback, ActionGetRecentFeedback, ActionGetFeedbackByID,
	ActionDeleteFeedback, ActionMarkAsRead, ActionArchiveFeedback,
	ActionRestoreFeedback, ActionGetArchivedFeedback, ActionGetFeedbackStats,
}

type feedbackRequest struct {
	Action     Action  `json:"action"`
	FeedbackID flexID  `json:"feedback_id"`
	ID         flexID  `json:"id"`
	UserID     *flexID `json:"user_id"`
	Name       string  `json:"name"`
	Message    string  `json:"message"`
	Rating     *int    `json:"rating"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

func (req *feedbackRequest) id() int64 {
	if req.FeedbackID != 0 {
		return int64(req.FeedbackID)
	}
	return int64(req.ID)
}

// FeedbackHandler serves feedback submission and the admin feedback views.
type FeedbackHandler struct {
	responder
	feedback *service.FeedbackService
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(feedback *service.FeedbackService, logger *slog.Logger, dev bool) *FeedbackHandler {
	return &FeedbackHandler{responder: newResponder(logger, dev), feedback: feedback}
}

// Submit stores feedback from an app user. It accepts only the submit action.
// POST /api/feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeAction(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Action != ActionSubmit {
		h.fail(w, r, invalid("Invalid action"))
		return
	}

	in := service.FeedbackInput{Name: req.Name, Message: req.Message, Rating: req.Rating}
	if req.UserID != nil {
		uid := int64(*req.UserID)
		in.UserID = &uid
	}
	f, err := h.feedback.Submit(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ActionResponse{Success: true, Message: "Feedback submitted successfully", Data: f})
}

// Admin dispatches one admin feedback action.
// POST /api/admin/feedback
func (h *FeedbackHandler) Admin(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeAction(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !allowed(FeedbackActions, req.Action) {
		h.fail(w, r, invalid("Invalid action"))
		return
	}

	resp, err := h.dispatch(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *FeedbackHandler) dispatch(ctx context.Context, req *feedbackRequest) (interface{}, error) {
	list := func(items []model.Feedback, limit, offset int, err error) (interface{}, error) {
		if err != nil {
			return nil, err
		}
		return model.ListResponse{
			Success: true,
			Message: "Feedback retrieved",
			Data:    items,
			Meta:    &model.ResponseMeta{Count: len(items), Limit: limit, Offset: offset},
		}, nil
	}
	done := func(msg string, err error) (interface{}, error) {
		if err != nil {
			return nil, err
		}
		return model.ActionResponse{Success: true, Message: msg}, nil
	}

	limit := clampInt(req.Limit, 0, maxPageSize)
	switch req.Action {
	case ActionGetFeedback:
		items, err := h.feedback.List(ctx, limit, req.Offset)
		return list(items, limit, req.Offset, err)
	case ActionGetRecentFeedback:
		if limit == 0 {
			limit = service.DefaultRecentLimit
		}
		items, err := h.feedback.Recent(ctx, limit)
		return list(items, limit, 0, err)
	case ActionGetArchivedFeedback:
		items, err := h.feedback.Archived(ctx, limit, req.Offset)
		return list(items, limit, req.Offset, err)
	case ActionGetFeedbackByID:
		f, err := h.feedback.Get(ctx, req.id())
		if err != nil {
			return nil, err
		}
		return model.ActionResponse{Success: true, Message: "Feedback retrieved", Data: f}, nil
	case ActionGetFeedbackStats:
		st, err := h.feedback.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return model.ActionResponse{Success: true, Message: "Feedback stats retrieved", Data: st}, nil
	case ActionDeleteFeedback:
		return done("Feedback deleted successfully", h.feedback.Delete(ctx, req.id()))
	case ActionMarkAsRead:
		return done("Feedback marked as read", h.feedback.MarkRead(ctx, req.id()))
	case ActionArchiveFeedback:
		return done("Feedback archived successfully", h.feedback.Archive(ctx, req.id()))
	case ActionRestoreFeedback:
		return done("Feedback restored successfully", h.feedback.Restore(ctx, req.id()))
	}
	return nil, invalid("Invalid action")
}
