package model

// ActionResponse is the single JSON envelope returned by every action
// endpoint. Success and Message are always present; the remaining fields
// are set by the actions that produce them.
type ActionResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`

	RequiresCaptcha bool         `json:"requires_captcha,omitempty"`
	Requires2FA     bool         `json:"requires_2fa,omitempty"`
	UserID          int64        `json:"user_id,omitempty"`
	UserEmail       string       `json:"user_email,omitempty"`
	IsAdmin         *bool        `json:"is_admin,omitempty"`
	EmailSent       *bool        `json:"email_sent,omitempty"`
	User            *SessionUser `json:"user,omitempty"`
	SessionToken    string       `json:"session_token,omitempty"`
	ExpiresAt       string       `json:"expires_at,omitempty"`

	Captcha        string   `json:"captcha,omitempty"`
	CaptchaOptions []string `json:"captcha_options,omitempty"`

	Available *bool `json:"available,omitempty"`

	Data interface{} `json:"data,omitempty"`
}

// ListResponse wraps list results with pagination metadata.
type ListResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    interface{}   `json:"data"`
	Meta    *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta contains pagination information for list responses.
type ResponseMeta struct {
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// BoolPtr returns a pointer to b, for the optional flags above.
func BoolPtr(b bool) *bool { return &b }
