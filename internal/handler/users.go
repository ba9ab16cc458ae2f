package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/service"
)

// User management actions.
const (
	ActionGetUsers       Action = "get_users"
	ActionArchiveUser    Action = "archive_user"
	ActionRestoreUser    Action = "restore_user"
	ActionAddUser        Action = "add_user"
	ActionUpdateStatus   Action = "update_status"
	ActionUpdatePassword Action = "update_password"
)

// UserActions is the closed action set of the user management endpoint.
var UserActions = []Action{
	ActionGetUsers, ActionArchiveUser, ActionRestoreUser,
	ActionAddUser, ActionUpdateStatus, ActionUpdatePassword,
}

// Page size bounds for list actions.
const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

type usersRequest struct {
	Action          Action `json:"action"`
	UserID          flexID `json:"user_id"`
	Search          string `json:"search"`
	Role            string `json:"role"`
	IncludeArchived bool   `json:"include_archived"`
	ArchivedOnly    bool   `json:"archived_only"`
	Limit           int    `json:"limit"`
	Offset          int    `json:"offset"`
	Username        string `json:"username"`
	Name            string `json:"name"` // older dashboard field for username
	Email           string `json:"email"`
	Password        string `json:"password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Status          string `json:"status"`
	NewPassword     string `json:"new_password"`
}

// UsersHandler serves the admin user management endpoint.
type UsersHandler struct {
	responder
	users *service.UserService
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(users *service.UserService, logger *slog.Logger, dev bool) *UsersHandler {
	return &UsersHandler{responder: newResponder(logger, dev), users: users}
}

// Handle dispatches one user management action.
// POST /api/admin/users
func (h *UsersHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req usersRequest
	if err := decodeAction(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !allowed(UserActions, req.Action) {
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

func (h *UsersHandler) dispatch(ctx context.Context, req *usersRequest) (interface{}, error) {
	id := int64(req.UserID)

	switch req.Action {
	case ActionGetUsers:
		limit := req.Limit
		if limit <= 0 {
			limit = defaultPageSize
		}
		limit = clampInt(limit, 1, maxPageSize)
		offset := req.Offset
		if offset < 0 {
			offset = 0
		}
		users, err := h.users.ListUsers(ctx, model.UserFilter{
			Search:          req.Search,
			Role:            req.Role,
			IncludeArchived: req.IncludeArchived,
			ArchivedOnly:    req.ArchivedOnly,
			Limit:           limit,
			Offset:          offset,
		})
		if err != nil {
			return nil, err
		}
		return model.ListResponse{
			Success: true,
			Message: "Users retrieved",
			Data:    users,
			Meta:    &model.ResponseMeta{Count: len(users), Limit: limit, Offset: offset},
		}, nil

	case ActionArchiveUser:
		if err := h.users.ArchiveUser(ctx, id); err != nil {
			return nil, err
		}
		return model.ActionResponse{Success: true, Message: "User archived successfully"}, nil

	case ActionRestoreUser:
		if err := h.users.RestoreUser(ctx, id); err != nil {
			return nil, err
		}
		return model.ActionResponse{Success: true, Message: "User restored successfully"}, nil

	case ActionAddUser:
		username := req.Username
		if username == "" {
			username = req.Name
		}
		u, err := h.users.AddUser(ctx, service.AddUserInput{
			Username:  username,
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      req.Role,
			Status:    req.Status,
		})
		if err != nil {
			return nil, err
		}
		return model.ActionResponse{Success: true, Message: "User added successfully", UserID: u.ID, Data: u}, nil

	case ActionUpdateStatus:
		if err := h.users.UpdateStatus(ctx, id, req.Status); err != nil {
			return nil, err
		}
		return model.ActionResponse{Success: true, Message: "User status updated successfully"}, nil

	case ActionUpdatePassword:
		if err := h.users.UpdatePassword(ctx, id, req.NewPassword); err != nil {
			return nil, err
		}
		return model.ActionResponse{Success: true, Message: "Password updated successfully"}, nil
	}
	return nil, invalid("Invalid action")
}
