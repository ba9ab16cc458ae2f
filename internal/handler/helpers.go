package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/service"
)

// Stable error codes returned in the error_code field.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccessDenied       = "ACCESS_DENIED"
	CodeCaptchaRequired    = "CAPTCHA_REQUIRED"
	CodeCaptchaInvalid     = "CAPTCHA_INVALID"
	CodeInvalidCode        = "CODE_INVALID_OR_EXPIRED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeUpstreamFailure    = "UPSTREAM_UNAVAILABLE"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// classify maps a service error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCredentials
	case errors.Is(err, service.ErrCodeInvalidOrExpired):
		return http.StatusUnauthorized, CodeInvalidCode
	case errors.Is(err, service.ErrCaptchaInvalid):
		return http.StatusUnauthorized, CodeCaptchaInvalid
	case errors.Is(err, service.ErrCaptchaRequired):
		return http.StatusOK, CodeCaptchaRequired
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden, CodeAccessDenied
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return http.StatusBadGateway, CodeUpstreamFailure
	default:
		return http.StatusInternalServerError, CodeStoreUnavailable
	}
}

// responder writes action responses. In development mode internal error
// detail is appended to failure messages.
type responder struct {
	logger *slog.Logger
	dev    bool
}

func newResponder(logger *slog.Logger, dev bool) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger, dev: dev}
}

// failure builds the response envelope and status for err.
func (rs responder) failure(r *http.Request, err error) (int, model.ActionResponse) {
	status, code := classify(err)
	msg := service.Message(err)
	if status >= http.StatusInternalServerError {
		rs.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		if rs.dev {
			if d := service.Detail(err); d != "" {
				msg += ": " + d
			}
		}
	}
	return status, model.ActionResponse{
		Success:         false,
		Message:         msg,
		ErrorCode:       code,
		RequiresCaptcha: code == CodeCaptchaRequired,
	}
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := rs.failure(r, err)
	writeJSON(w, status, resp)
}

// invalid is shorthand for an InvalidInput failure.
func invalid(msg string) error {
	return &service.Error{Kind: service.ErrInvalidInput, Message: msg}
}

// decodeAction reads a JSON action body into v. Malformed JSON is an
// InvalidInput failure.
func decodeAction(r *http.Request, v interface{}) error {
	if err := readJSON(r, v); err != nil {
		return &service.Error{Kind: service.ErrInvalidInput, Message: "Invalid JSON input", Cause: err}
	}
	return nil
}

// flexID accepts a JSON number or a numeric string, as older clients send
// IDs as strings.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" || len(b) == 0 {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*f = flexID(n)
	return nil
}

// flexString accepts a JSON string or number. Numbers keep their literal
// form, so a code sent as 123456 reads as "123456".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
