package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/arcoapp/arco-admin/internal/config"
	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/service"
	"github.com/arcoapp/arco-admin/internal/session"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Credential sources.
const (
	SourceBearer  = "bearer"
	SourceSession = "session"
)

// Principal represents the authenticated identity making the request.
type Principal struct {
	Source   string // SourceBearer or SourceSession
	UserID   int64
	Username string
	Role     string
	Audience model.Audience
	IsAdmin  bool
}

// Authenticate returns an HTTP middleware that identifies the caller. It
// supports two methods:
//
//  1. JWT Bearer token via the Authorization header, as issued by verify_token
//  2. The session cookie of a browser that completed verification
//
// On success, a Principal is attached to the request context. On failure,
// a 401 action response is returned.
func Authenticate(authSvc *service.AuthService, sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *Principal

			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				token := strings.TrimPrefix(authHeader, "Bearer ")
				p, err := authSvc.ValidateJWT(r.Context(), token)
				if err != nil {
					writeAuthError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token")
					return
				}
				principal = &Principal{
					Source:   SourceBearer,
					UserID:   p.UserID,
					Username: p.Username,
					Role:     p.Role,
					Audience: p.Audience,
					IsAdmin:  p.IsAdmin(),
				}
			}

			if principal == nil && sessions != nil {
				_, st, err := sessions.Load(r)
				if err != nil {
					writeAuthError(w, http.StatusInternalServerError, CodeStoreUnavailable, "Internal server error")
					return
				}
				if st.SignedIn() {
					principal = &Principal{
						Source:   SourceSession,
						UserID:   st.User.ID,
						Username: st.User.Username,
						Role:     st.User.Role,
						Audience: st.Audience,
						IsAdmin:  st.IsAdmin(),
					}
				}
			}

			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized, CodeUnauthorized,
					"Authentication required. Sign in or provide a Bearer token.")
				return
			}

			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Accounts looks up the current state of an account.
type Accounts interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// RequireAdmin returns an HTTP middleware that enforces admin-level access.
// It must be used after Authenticate in the middleware chain. A bearer token
// or session only records the role at sign-in; when accounts is non-nil the
// account is loaded again, so an admin who has since been archived or
// demoted is refused.
func RequireAdmin(accounts Accounts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || !principal.IsAdmin {
				writeAuthError(w, http.StatusForbidden, CodeAccessDenied, "Access denied. Admin privileges required.")
				return
			}
			if accounts != nil {
				u, err := accounts.GetUserByID(r.Context(), principal.UserID)
				switch {
				case err != nil && !errors.Is(err, config.ErrNotFound):
					writeAuthError(w, http.StatusInternalServerError, CodeStoreUnavailable, "Internal server error")
					return
				case u == nil || u.IsArchived || u.Role != model.RoleAdmin:
					writeAuthError(w, http.StatusForbidden, CodeAccessDenied, "Access denied. Admin privileges required.")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// Error codes written by the middleware. They match the codes the action
// handlers use.
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeAccessDenied     = "ACCESS_DENIED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ActionResponse{Success: false, Message: message, ErrorCode: code})
}
