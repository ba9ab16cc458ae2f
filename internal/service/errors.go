package service

import (
	"errors"
	"fmt"

	"github.com/arcoapp/arco-admin/internal/config"
)

// Failure kinds of the sign-in flow and the account services. Handlers map
// each kind to an HTTP status and a stable error code with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccessDenied         = errors.New("access denied")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCodeInvalidOrExpired = errors.New("code invalid or expired")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
)

// Error is a failure of kind Kind carrying the message shown to clients.
// Cause, when set, is internal detail for logs and development mode only.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func fail(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// storeError classifies an error returned by the config store. Missing rows
// become ErrNotFound with message, unique violations ErrConflict, and
// everything else ErrStoreUnavailable.
func storeError(err error, notFound string) error {
	switch {
	case errors.Is(err, config.ErrNotFound):
		return &Error{Kind: ErrNotFound, Message: notFound}
	case errors.Is(err, config.ErrConflict):
		return &Error{Kind: ErrConflict, Message: "Username or email already exists"}
	default:
		return &Error{Kind: ErrStoreUnavailable, Message: "Internal server error", Cause: err}
	}
}

func unavailable(err error) error {
	return &Error{Kind: ErrStoreUnavailable, Message: "Internal server error", Cause: err}
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "Invalid input"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrAccessDenied):
		return "Access denied"
	case errors.Is(err, ErrCaptchaRequired):
		return "CAPTCHA required"
	case errors.Is(err, ErrCaptchaInvalid):
		return "Invalid CAPTCHA"
	case errors.Is(err, ErrCodeInvalidOrExpired):
		return "Invalid or expired code"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrConflict):
		return "Already exists"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "Assistant unavailable"
	default:
		return "Internal server error"
	}
}

// Detail returns the internal cause of err, or "" when there is none.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Cause != nil {
		return e.Cause.Error()
	}
	if !errors.As(err, &e) {
		return err.Error()
	}
	return ""
}
