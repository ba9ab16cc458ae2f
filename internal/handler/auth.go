package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/service"
	"github.com/arcoapp/arco-admin/internal/session"
)

// Action names one operation of an action endpoint.
type Action string

// Sign-in actions.
const (
	ActionLogin           Action = "login"
	ActionVerifyToken     Action = "verify_token"
	ActionResendCode      Action = "resend_code"
	ActionGenerateCaptcha Action = "generate_captcha"
	ActionVerifyCaptcha   Action = "verify_captcha"
	ActionLogout          Action = "logout"
	ActionCheckUsername   Action = "check_username"
	ActionSignUp          Action = "sign_up"
	ActionResetPassword   Action = "reset_password"
)

// AdminAuthActions and MobileAuthActions are the closed action sets of the
// two sign-in endpoints.
var (
	AdminAuthActions = []Action{
		ActionLogin, ActionVerifyToken, ActionResendCode,
		ActionGenerateCaptcha, ActionVerifyCaptcha, ActionLogout,
	}
	MobileAuthActions = []Action{
		ActionLogin, ActionVerifyToken, ActionResendCode,
		ActionGenerateCaptcha, ActionVerifyCaptcha, ActionLogout,
		ActionCheckUsername, ActionSignUp, ActionResetPassword,
	}
)

func allowed(set []Action, a Action) bool {
	for _, v := range set {
		if v == a {
			return true
		}
	}
	return false
}

// authRequest is the union of the fields the sign-in actions read.
type authRequest struct {
	Action           Action     `json:"action"`
	Username         string     `json:"username"`
	Password         string     `json:"password"`
	Captcha          flexString `json:"captcha"`
	UserID           flexID     `json:"user_id"`
	Token            flexString `json:"token"`
	Email            string     `json:"email"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	SecurityQuestion string     `json:"security_question"`
	SecurityAnswer   string     `json:"security_answer"`
	NewPassword      string     `json:"new_password"`
}

// AuthHandler serves the admin and mobile sign-in endpoints. Session state
// is loaded before an action runs and saved before the response is written.
type AuthHandler struct {
	responder
	auth     *service.AuthService
	users    *service.UserService
	sessions *session.Manager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, users *service.UserService, sessions *session.Manager, logger *slog.Logger, dev bool) *AuthHandler {
	return &AuthHandler{
		responder: newResponder(logger, dev),
		auth:      auth,
		users:     users,
		sessions:  sessions,
	}
}

// Admin serves the dashboard sign-in flow.
// POST /api/admin/auth
func (h *AuthHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, model.AudienceAdmin, AdminAuthActions)
}

// Mobile serves the app sign-in flow plus registration and password reset.
// POST /api/mobile/auth
func (h *AuthHandler) Mobile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, model.AudienceMobile, MobileAuthActions)
}

// outcome is what an action decided about the session besides its response.
type outcome int

const (
	keepSession outcome = iota
	rotateSession
	destroySession
)

func (h *AuthHandler) serve(w http.ResponseWriter, r *http.Request, aud model.Audience, actions []Action) {
	var req authRequest
	if err := decodeAction(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !allowed(actions, req.Action) {
		h.fail(w, r, invalid("Invalid action"))
		return
	}

	id, st, err := h.sessions.Load(r)
	if err != nil {
		h.fail(w, r, &service.Error{Kind: service.ErrStoreUnavailable, Message: "Internal server error", Cause: err})
		return
	}

	resp, next, actErr := h.dispatch(r.Context(), aud, st, &req)

	switch next {
	case destroySession:
		err = h.sessions.Destroy(r.Context(), w, id)
	case rotateSession:
		_, err = h.sessions.Rotate(r.Context(), w, id, st)
	default:
		_, err = h.sessions.Save(r.Context(), w, id, st)
	}
	if err != nil {
		h.fail(w, r, &service.Error{Kind: service.ErrStoreUnavailable, Message: "Internal server error", Cause: err})
		return
	}

	if actErr != nil {
		h.fail(w, r, actErr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) dispatch(ctx context.Context, aud model.Audience, st *session.State, req *authRequest) (model.ActionResponse, outcome, error) {
	switch req.Action {
	case ActionLogin:
		res, err := h.auth.Login(ctx, aud, st, service.LoginInput{
			Username: req.Username,
			Password: req.Password,
			Captcha:  string(req.Captcha),
		})
		if err != nil {
			return model.ActionResponse{}, keepSession, err
		}
		msg := "Verification code sent to your email"
		if !res.EmailSent {
			msg = "Login successful but failed to send email. Please contact support."
		}
		return model.ActionResponse{
			Success:     true,
			Message:     msg,
			Requires2FA: true,
			UserID:      res.User.ID,
			UserEmail:   res.User.Email,
			IsAdmin:     model.BoolPtr(res.User.IsAdmin()),
			EmailSent:   model.BoolPtr(res.EmailSent),
			User:        res.User.Snapshot(),
		}, keepSession, nil

	case ActionVerifyToken:
		res, err := h.auth.VerifyCode(ctx, aud, st, int64(req.UserID), string(req.Token))
		if err != nil {
			return model.ActionResponse{}, keepSession, err
		}
		return model.ActionResponse{
			Success:      true,
			Message:      "Verification successful",
			User:         res.User,
			SessionToken: res.Token,
			ExpiresAt:    res.ExpiresAt.UTC().Format(time.RFC3339),
		}, rotateSession, nil

	case ActionResendCode:
		res, err := h.auth.ResendCode(ctx, aud, int64(req.UserID), req.Email)
		if err != nil {
			return model.ActionResponse{}, keepSession, err
		}
		msg := "Verification code resent"
		if !res.EmailSent {
			msg = "Failed to resend verification code"
		}
		return model.ActionResponse{Success: true, Message: msg, EmailSent: model.BoolPtr(res.EmailSent)}, keepSession, nil

	case ActionGenerateCaptcha:
		c, err := h.auth.GenerateCaptcha(st)
		if err != nil {
			return model.ActionResponse{}, keepSession, err
		}
		return model.ActionResponse{Success: true, Message: "CAPTCHA generated", Captcha: c.Code, CaptchaOptions: c.Options}, keepSession, nil

	case ActionVerifyCaptcha:
		if err := h.auth.VerifyCaptcha(st, string(req.Captcha)); err != nil {
			return model.ActionResponse{}, keepSession, err
		}
		return model.ActionResponse{Success: true, Message: "CAPTCHA verified"}, keepSession, nil

	case ActionLogout:
		h.auth.Logout(st)
		return model.ActionResponse{Success: true, Message: "Logged out"}, destroySession, nil

	case ActionCheckUsername:
		ok, err := h.users.CheckUsername(ctx, req.Username)
		if err != nil {
			return model.ActionResponse{}, keepSession, err
		}
		msg := "Username available"
		if !ok {
			msg = "Username already taken"
		}
		return model.ActionResponse{Success: true, Message: msg, Available: model.BoolPtr(ok)}, keepSession, nil

	case ActionSignUp:
		u, err := h.users.SignUp(ctx, service.SignUpInput{
			Username:         req.Username,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			Password:         req.Password,
			Email:            req.Email,
			SecurityQuestion: req.SecurityQuestion,
			SecurityAnswer:   req.SecurityAnswer,
		})
		if err != nil {
			return model.ActionResponse{}, keepSession, err
		}
		return model.ActionResponse{Success: true, Message: "User created successfully", User: u.Snapshot()}, keepSession, nil

	case ActionResetPassword:
		if err := h.users.ResetPassword(ctx, req.Username, req.SecurityQuestion, req.SecurityAnswer, req.NewPassword); err != nil {
			return model.ActionResponse{}, keepSession, err
		}
		return model.ActionResponse{Success: true, Message: "Password reset successfully"}, keepSession, nil
	}
	return model.ActionResponse{}, keepSession, invalid("Invalid action")
}
