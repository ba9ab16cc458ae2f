package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/arcoapp/arco-admin/internal/config"
	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/openapi"
	"github.com/arcoapp/arco-admin/internal/service"
	"github.com/arcoapp/arco-admin/internal/session"
)

const (
	testJWTSecret = "test-secret-for-handler-tests"
	testPassword  = "correct-horse"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// mailbox records the last code mailed to each address.
type mailbox struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (m *mailbox) SendCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[email] = code
	return nil
}

func (m *mailbox) last(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store    *config.Store
	auth     *service.AuthService
	users    *service.UserService
	feedback *service.FeedbackService
	sessions *session.MemoryStore
	mail     *mailbox
	router   chi.Router
}

// newTestEnv creates a fresh test environment with an in-memory store and a
// Chi router with the handlers mounted (no auth middleware).
func newTestEnv(t *testing.T, dev bool) *testEnv {
	t.Helper()

	store, err := config.OpenSQLite("")
	if err != nil {
		t.Fatalf("config.OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	e := &testEnv{
		store:    store,
		mail:     &mailbox{},
		sessions: session.NewMemoryStore(time.Hour),
	}
	e.auth = service.NewAuthService(store, e.mail, testJWTSecret, service.Options{
		BcryptCost: bcrypt.MinCost,
		Logger:     discard,
	})
	e.users = service.NewUserService(store, bcrypt.MinCost, discard)
	e.feedback = service.NewFeedbackService(store, discard)

	mgr := &session.Manager{Store: e.sessions, Cookie: session.Cookie{}}
	authH := NewAuthHandler(e.auth, e.users, mgr, discard, dev)
	usersH := NewUsersHandler(e.users, discard, dev)
	feedbackH := NewFeedbackHandler(e.feedback, discard, dev)
	sysH := NewSystemHandler(e.feedback, map[string]Pinger{"database": store, "sessions": e.sessions}, "test", discard, dev)
	openapiH := NewOpenAPIHandler(openapi.Info{Version: "test"})

	r := chi.NewRouter()
	r.Get("/healthz", sysH.Healthz)
	r.Get("/readyz", sysH.Readyz)
	r.Get("/openapi.json", openapiH.ServeSpec)
	r.Post("/api/admin/auth", authH.Admin)
	r.Post("/api/mobile/auth", authH.Mobile)
	r.Post("/api/feedback", feedbackH.Submit)
	r.Post("/api/admin/users", usersH.Handle)
	r.Post("/api/admin/feedback", feedbackH.Admin)
	r.Get("/api/admin/stats", sysH.Stats)
	e.router = r
	return e
}

func (e *testEnv) seedAdmin(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.users.CreateAdmin(context.Background(), service.AddUserInput{
		Username: username, Email: username + "@example.com", Password: testPassword,
	})
	if err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return u
}

func (e *testEnv) seedUser(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.users.AddUser(context.Background(), service.AddUserInput{
		Username: username, Email: username + "@example.com", Password: testPassword,
	})
	if err != nil {
		t.Fatalf("seedUser: %v", err)
	}
	return u
}

// client carries the session cookie between requests, like a browser.
type client struct {
	e      *testEnv
	cookie *http.Cookie
}

func (e *testEnv) client() *client { return &client{e: e} }

func (c *client) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return c.do(t, http.MethodPost, path, toJSON(t, body))
}

func (c *client) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.e.router.ServeHTTP(rr, req)

	for _, ck := range rr.Result().Cookies() {
		if ck.Name != session.DefaultCookieName {
			continue
		}
		if ck.MaxAge < 0 {
			c.cookie = nil
		} else {
			c.cookie = ck
		}
	}
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if s, ok := v.(string); ok {
		buf.WriteString(s)
		return buf
	}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// response is the decoded action envelope, with the user snapshot kept
// structured.
type response struct {
	Success         bool               `json:"success"`
	Message         string             `json:"message"`
	ErrorCode       string             `json:"error_code"`
	RequiresCaptcha bool               `json:"requires_captcha"`
	Requires2FA     bool               `json:"requires_2fa"`
	UserID          int64              `json:"user_id"`
	UserEmail       string             `json:"user_email"`
	IsAdmin         *bool              `json:"is_admin"`
	EmailSent       *bool              `json:"email_sent"`
	User            *model.SessionUser `json:"user"`
	SessionToken    string             `json:"session_token"`
	ExpiresAt       string             `json:"expires_at"`
	Captcha         string             `json:"captcha"`
	CaptchaOptions  []string           `json:"captcha_options"`
	Available       *bool              `json:"available"`
	Data            json.RawMessage    `json:"data"`
	Meta            json.RawMessage    `json:"meta"`
}

func readResponse(t *testing.T, rr *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	decodeJSON(t, rr, &resp)
	return resp
}

// signIn runs login and verify_token for username on path and returns the
// final response.
func signIn(t *testing.T, c *client, path, username string) response {
	t.Helper()
	rr := c.post(t, path, map[string]interface{}{"action": "login", "username": username, "password": testPassword})
	assertStatus(t, rr, http.StatusOK)
	login := readResponse(t, rr)
	if !login.Success || !login.Requires2FA {
		t.Fatalf("login = %+v", login)
	}
	code := c.e.mail.last(login.UserEmail)
	rr = c.post(t, path, map[string]interface{}{"action": "verify_token", "user_id": login.UserID, "token": code})
	assertStatus(t, rr, http.StatusOK)
	return readResponse(t, rr)
}

// ─── Admin auth ─────────────────────────────────────────────────────────────

func TestAdminSignIn(t *testing.T) {
	e := newTestEnv(t, false)
	admin := e.seedAdmin(t, "root")
	c := e.client()

	rr := c.post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "root", "password": testPassword})
	assertStatus(t, rr, http.StatusOK)
	login := readResponse(t, rr)
	if !login.Success || !login.Requires2FA || login.UserID != admin.ID || login.UserEmail != admin.Email {
		t.Fatalf("login = %+v", login)
	}
	if login.IsAdmin == nil || !*login.IsAdmin || login.EmailSent == nil || !*login.EmailSent {
		t.Errorf("flags: is_admin=%v email_sent=%v", login.IsAdmin, login.EmailSent)
	}
	if login.Message != "Verification code sent to your email" {
		t.Errorf("Message = %q", login.Message)
	}
	if c.cookie == nil {
		t.Fatal("login should set the session cookie")
	}
	before := c.cookie.Value

	code := e.mail.last(admin.Email)
	if len(code) != 6 {
		t.Fatalf("mailed code = %q", code)
	}

	// Codes sent as JSON numbers are accepted too.
	var asNumber interface{} = code
	if code[0] != '0' {
		asNumber = json.Number(code)
	}
	rr = c.post(t, "/api/admin/auth", map[string]interface{}{"action": "verify_token", "user_id": login.UserID, "token": asNumber})
	assertStatus(t, rr, http.StatusOK)
	verify := readResponse(t, rr)
	if !verify.Success || verify.User == nil || verify.User.Username != "root" || verify.User.Role != model.RoleAdmin {
		t.Fatalf("verify = %+v", verify)
	}
	if verify.SessionToken == "" {
		t.Fatal("verify should return a session token")
	}
	if _, err := time.Parse(time.RFC3339, verify.ExpiresAt); err != nil {
		t.Errorf("expires_at %q: %v", verify.ExpiresAt, err)
	}

	p, err := e.auth.ValidateJWT(context.Background(), verify.SessionToken)
	if err != nil || !p.IsAdmin() || p.UserID != admin.ID {
		t.Errorf("ValidateJWT = %+v, %v", p, err)
	}

	if c.cookie == nil || c.cookie.Value == before {
		t.Error("verify should rotate the session cookie")
	}
	old, _ := e.sessions.Load(context.Background(), before)
	if old.SignedIn() {
		t.Error("pre-sign-in session ID must not carry the signed-in user")
	}
	st, _ := e.sessions.Load(context.Background(), c.cookie.Value)
	if !st.IsAdmin() {
		t.Error("rotated session should hold the admin")
	}

	// Replay fails.
	rr = c.post(t, "/api/admin/auth", map[string]interface{}{"action": "verify_token", "user_id": login.UserID, "token": code})
	assertStatus(t, rr, http.StatusUnauthorized)
	if got := readResponse(t, rr); got.ErrorCode != CodeInvalidCode {
		t.Errorf("replay error_code = %q", got.ErrorCode)
	}
}

func TestAdminLoginRejectsAppUsers(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedUser(t, "alice")

	rr := e.client().post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "alice", "password": testPassword})
	assertStatus(t, rr, http.StatusForbidden)
	resp := readResponse(t, rr)
	if resp.Success || resp.ErrorCode != CodeAccessDenied || resp.Message != "Access denied. Admin privileges required." {
		t.Errorf("resp = %+v", resp)
	}
	if e.mail.last("alice@example.com") != "" {
		t.Error("no code should be sent")
	}
}

func TestAdminCaptchaEscalation(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedAdmin(t, "root")
	c := e.client()

	rr := c.post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "root", "password": "wrong-password"})
	assertStatus(t, rr, http.StatusUnauthorized)
	if resp := readResponse(t, rr); resp.ErrorCode != CodeInvalidCredentials || resp.Message != "Invalid username or password" {
		t.Errorf("bad password resp = %+v", resp)
	}

	// Correct password now needs a CAPTCHA; this is a soft failure.
	rr = c.post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "root", "password": testPassword})
	assertStatus(t, rr, http.StatusOK)
	resp := readResponse(t, rr)
	if resp.Success || !resp.RequiresCaptcha || resp.ErrorCode != CodeCaptchaRequired {
		t.Fatalf("captcha gate resp = %+v", resp)
	}

	rr = c.post(t, "/api/admin/auth", map[string]interface{}{"action": "generate_captcha"})
	assertStatus(t, rr, http.StatusOK)
	gen := readResponse(t, rr)
	if gen.Captcha == "" || len(gen.CaptchaOptions) != 3 {
		t.Fatalf("generate_captcha = %+v", gen)
	}

	rr = c.post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "root", "password": testPassword, "captcha": gen.Captcha})
	assertStatus(t, rr, http.StatusOK)
	if resp := readResponse(t, rr); !resp.Success || !resp.Requires2FA {
		t.Errorf("login with captcha = %+v", resp)
	}
}

func TestAdminWrongCaptcha(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedAdmin(t, "root")
	c := e.client()

	c.post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "root", "password": "nope-nope"})
	c.post(t, "/api/admin/auth", map[string]interface{}{"action": "generate_captcha"})

	rr := c.post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "root", "password": testPassword, "captcha": "0000"})
	assertStatus(t, rr, http.StatusUnauthorized)
	if resp := readResponse(t, rr); resp.ErrorCode != CodeCaptchaInvalid {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
}

func TestVerifyCaptchaAction(t *testing.T) {
	e := newTestEnv(t, false)
	c := e.client()

	rr := c.post(t, "/api/admin/auth", map[string]interface{}{"action": "verify_captcha", "captcha": "1234"})
	assertStatus(t, rr, http.StatusUnauthorized)

	gen := readResponse(t, c.post(t, "/api/admin/auth", map[string]interface{}{"action": "generate_captcha"}))
	rr = c.post(t, "/api/admin/auth", map[string]interface{}{"action": "verify_captcha", "captcha": gen.Captcha})
	assertStatus(t, rr, http.StatusOK)
	if resp := readResponse(t, rr); !resp.Success || resp.Message != "CAPTCHA verified" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestResendCodeAction(t *testing.T) {
	e := newTestEnv(t, false)
	admin := e.seedAdmin(t, "root")
	c := e.client()

	login := readResponse(t, c.post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "root", "password": testPassword}))
	first := e.mail.last(admin.Email)

	rr := c.post(t, "/api/admin/auth", map[string]interface{}{"action": "resend_code", "user_id": login.UserID, "email": "someone@else.com"})
	assertStatus(t, rr, http.StatusForbidden)

	rr = c.post(t, "/api/admin/auth", map[string]interface{}{"action": "resend_code", "user_id": login.UserID, "email": "ROOT@example.com"})
	assertStatus(t, rr, http.StatusOK)
	resp := readResponse(t, rr)
	if !resp.Success || resp.EmailSent == nil || !*resp.EmailSent {
		t.Fatalf("resend = %+v", resp)
	}
	second := e.mail.last(admin.Email)

	if first != second {
		rr = c.post(t, "/api/admin/auth", map[string]interface{}{"action": "verify_token", "user_id": login.UserID, "token": first})
		assertStatus(t, rr, http.StatusUnauthorized)
	}
	rr = c.post(t, "/api/admin/auth", map[string]interface{}{"action": "verify_token", "user_id": login.UserID, "token": second})
	assertStatus(t, rr, http.StatusOK)
}

func TestLoginDeliveryFailure(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedAdmin(t, "root")
	e.mail.err = errors.New("smtp down")

	rr := e.client().post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "root", "password": testPassword})
	assertStatus(t, rr, http.StatusOK)
	resp := readResponse(t, rr)
	if !resp.Success || resp.EmailSent == nil || *resp.EmailSent {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Message != "Login successful but failed to send email. Please contact support." {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedAdmin(t, "root")
	c := e.client()

	signIn(t, c, "/api/admin/auth", "root")
	id := c.cookie.Value

	rr := c.post(t, "/api/admin/auth", map[string]interface{}{"action": "logout"})
	assertStatus(t, rr, http.StatusOK)
	if c.cookie != nil {
		t.Error("logout should expire the cookie")
	}
	st, _ := e.sessions.Load(context.Background(), id)
	if st.SignedIn() {
		t.Error("session should be gone after logout")
	}
}

// ─── Envelope and dispatch ──────────────────────────────────────────────────

func TestActionDispatchErrors(t *testing.T) {
	e := newTestEnv(t, false)

	tests := []struct {
		name string
		path string
		body interface{}
		msg  string
	}{
		{"invalid json", "/api/admin/auth", "{not json", "Invalid JSON input"},
		{"missing action", "/api/admin/auth", map[string]string{}, "Invalid action"},
		{"unknown action", "/api/admin/auth", map[string]string{"action": "drop_tables"}, "Invalid action"},
		{"mobile-only action on admin", "/api/admin/auth", map[string]string{"action": "sign_up"}, "Invalid action"},
		{"admin action on users", "/api/admin/users", map[string]string{"action": "login"}, "Invalid action"},
		{"feedback submit only", "/api/feedback", map[string]string{"action": "get_feedback"}, "Invalid action"},
		{"missing credentials", "/api/admin/auth", map[string]string{"action": "login"}, "Username and password required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.client().do(t, http.MethodPost, tt.path, toJSON(t, tt.body))
			assertStatus(t, rr, http.StatusBadRequest)
			resp := readResponse(t, rr)
			if resp.Success || resp.ErrorCode != CodeInvalidInput || resp.Message != tt.msg {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestStoreFailureDetailOnlyInDev(t *testing.T) {
	for _, dev := range []bool{false, true} {
		e := newTestEnv(t, dev)
		e.store.Close()

		rr := e.client().post(t, "/api/admin/auth", map[string]interface{}{"action": "login", "username": "root", "password": testPassword})
		assertStatus(t, rr, http.StatusInternalServerError)
		resp := readResponse(t, rr)
		if resp.ErrorCode != CodeStoreUnavailable {
			t.Errorf("dev=%v error_code = %q", dev, resp.ErrorCode)
		}
		if !dev && resp.Message != "Internal server error" {
			t.Errorf("production message = %q", resp.Message)
		}
		if dev && resp.Message == "Internal server error" {
			t.Error("development message should carry detail")
		}
	}
}

// ─── Mobile auth ────────────────────────────────────────────────────────────

func TestMobileSignUpAndSignIn(t *testing.T) {
	e := newTestEnv(t, false)
	c := e.client()

	rr := c.post(t, "/api/mobile/auth", map[string]interface{}{"action": "check_username", "username": "maria"})
	assertStatus(t, rr, http.StatusOK)
	if resp := readResponse(t, rr); resp.Available == nil || !*resp.Available {
		t.Fatalf("check_username = %+v", resp)
	}

	signUp := map[string]interface{}{
		"action":            "sign_up",
		"username":          "maria",
		"first_name":        "Maria",
		"last_name":         "Santos",
		"password":          testPassword,
		"email":             "maria@example.com",
		"security_question": "First pet?",
		"security_answer":   "Bantay",
	}
	rr = c.post(t, "/api/mobile/auth", signUp)
	assertStatus(t, rr, http.StatusOK)
	created := readResponse(t, rr)
	if !created.Success || created.User == nil || created.User.Role != model.RoleUser {
		t.Fatalf("sign_up = %+v", created)
	}

	rr = c.post(t, "/api/mobile/auth", signUp)
	assertStatus(t, rr, http.StatusConflict)

	rr = c.post(t, "/api/mobile/auth", map[string]interface{}{"action": "check_username", "username": "maria"})
	if resp := readResponse(t, rr); resp.Available == nil || *resp.Available {
		t.Errorf("check_username after sign_up = %+v", resp)
	}

	// Mobile login accepts the email address.
	rr = c.post(t, "/api/mobile/auth", map[string]interface{}{"action": "login", "username": "maria@example.com", "password": testPassword})
	assertStatus(t, rr, http.StatusOK)
	login := readResponse(t, rr)
	rr = c.post(t, "/api/mobile/auth", map[string]interface{}{"action": "verify_token", "user_id": login.UserID, "token": e.mail.last("maria@example.com")})
	assertStatus(t, rr, http.StatusOK)
	verify := readResponse(t, rr)
	if !verify.Success || verify.User.FirstName != "Maria" {
		t.Errorf("verify = %+v", verify)
	}

	p, err := e.auth.ValidateJWT(context.Background(), verify.SessionToken)
	if err != nil || p.IsAdmin() {
		t.Errorf("mobile token principal = %+v, %v", p, err)
	}
}

func TestMobileRejectsAdmins(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedAdmin(t, "root")

	rr := e.client().post(t, "/api/mobile/auth", map[string]interface{}{"action": "login", "username": "root", "password": testPassword})
	assertStatus(t, rr, http.StatusForbidden)
	resp := readResponse(t, rr)
	if resp.Message != "Admin accounts cannot login through the mobile app. Please use the web admin portal." {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestMobileNoCaptchaByDefault(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedUser(t, "alice")
	c := e.client()

	c.post(t, "/api/mobile/auth", map[string]interface{}{"action": "login", "username": "alice", "password": "bad-password"})
	rr := c.post(t, "/api/mobile/auth", map[string]interface{}{"action": "login", "username": "alice", "password": testPassword})
	assertStatus(t, rr, http.StatusOK)
	if resp := readResponse(t, rr); !resp.Success || resp.RequiresCaptcha {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMobileResetPassword(t *testing.T) {
	e := newTestEnv(t, false)
	c := e.client()
	c.post(t, "/api/mobile/auth", map[string]interface{}{
		"action": "sign_up", "username": "ben", "first_name": "Ben", "last_name": "Cruz",
		"password": testPassword, "email": "ben@example.com",
		"security_question": "City?", "security_answer": "Cebu",
	})

	rr := c.post(t, "/api/mobile/auth", map[string]interface{}{
		"action": "reset_password", "username": "ben", "security_question": "City?",
		"security_answer": "Davao", "new_password": "another-pass",
	})
	assertStatus(t, rr, http.StatusUnauthorized)

	rr = c.post(t, "/api/mobile/auth", map[string]interface{}{
		"action": "reset_password", "username": "ben", "security_question": "City?",
		"security_answer": " cebu ", "new_password": "another-pass",
	})
	assertStatus(t, rr, http.StatusOK)

	rr = c.post(t, "/api/mobile/auth", map[string]interface{}{"action": "login", "username": "ben", "password": "another-pass"})
	assertStatus(t, rr, http.StatusOK)
}

// ─── Users ──────────────────────────────────────────────────────────────────

func TestUsersActions(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedAdmin(t, "root")
	c := e.client()

	rr := c.post(t, "/api/admin/users", map[string]interface{}{
		"action": "add_user", "name": "carla", "email": "carla@example.com",
		"password": testPassword, "first_name": "Carla",
	})
	assertStatus(t, rr, http.StatusOK)
	added := readResponse(t, rr)
	if !added.Success || added.UserID == 0 {
		t.Fatalf("add_user = %+v", added)
	}

	rr = c.post(t, "/api/admin/users", map[string]interface{}{"action": "add_user", "username": "boss", "email": "boss@example.com", "role": "admin"})
	assertStatus(t, rr, http.StatusForbidden)

	rr = c.post(t, "/api/admin/users", map[string]interface{}{"action": "archive_user", "user_id": json.Number("999")})
	assertStatus(t, rr, http.StatusNotFound)

	rr = c.post(t, "/api/admin/users", map[string]interface{}{"action": "archive_user", "user_id": added.UserID})
	assertStatus(t, rr, http.StatusOK)

	var list struct {
		Success bool               `json:"success"`
		Data    []model.User       `json:"data"`
		Meta    model.ResponseMeta `json:"meta"`
	}
	rr = c.post(t, "/api/admin/users", map[string]interface{}{"action": "get_users"})
	assertStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &list)
	if len(list.Data) != 1 || list.Data[0].Username != "root" || list.Meta.Limit != defaultPageSize {
		t.Errorf("active users = %+v", list)
	}

	rr = c.post(t, "/api/admin/users", map[string]interface{}{"action": "get_users", "archived_only": true, "limit": 5000})
	decodeJSON(t, rr, &list)
	if len(list.Data) != 1 || list.Data[0].Username != "carla" || list.Meta.Limit != maxPageSize {
		t.Errorf("archived users = %+v", list)
	}

	// String IDs from older clients are accepted.
	rr = c.post(t, "/api/admin/users", map[string]interface{}{"action": "update_status", "user_id": "2", "status": "active"})
	assertStatus(t, rr, http.StatusOK)

	rr = c.post(t, "/api/admin/users", map[string]interface{}{"action": "update_status", "user_id": added.UserID, "status": "deleted"})
	assertStatus(t, rr, http.StatusBadRequest)

	rr = c.post(t, "/api/admin/users", map[string]interface{}{"action": "update_password", "user_id": added.UserID, "new_password": "short"})
	assertStatus(t, rr, http.StatusBadRequest)

	rr = c.post(t, "/api/admin/users", map[string]interface{}{"action": "update_password", "user_id": added.UserID, "new_password": "brand-new-pass"})
	assertStatus(t, rr, http.StatusOK)

	rr = c.post(t, "/api/mobile/auth", map[string]interface{}{"action": "login", "username": "carla", "password": "brand-new-pass"})
	assertStatus(t, rr, http.StatusOK)
}

// ─── Feedback and stats ─────────────────────────────────────────────────────

func TestFeedbackActions(t *testing.T) {
	e := newTestEnv(t, false)
	user := e.seedUser(t, "alice")
	c := e.client()

	rr := c.post(t, "/api/feedback", map[string]interface{}{"action": "submit", "user_id": user.ID, "message": "Love the budget charts", "rating": 5})
	assertStatus(t, rr, http.StatusOK)
	var submitted struct {
		Data model.Feedback `json:"data"`
	}
	decodeJSON(t, rr, &submitted)
	if submitted.Data.Name != model.AnonymousName || submitted.Data.Rating == nil || *submitted.Data.Rating != 5 {
		t.Errorf("submitted = %+v", submitted.Data)
	}

	rr = c.post(t, "/api/feedback", map[string]interface{}{"action": "submit", "message": ""})
	assertStatus(t, rr, http.StatusBadRequest)

	rr = c.post(t, "/api/feedback", map[string]interface{}{"action": "submit", "user_id": "12345", "message": "hi"})
	assertStatus(t, rr, http.StatusBadRequest)

	c.post(t, "/api/feedback", map[string]interface{}{"action": "submit", "name": "Guest", "message": "Second"})

	id := submitted.Data.ID
	rr = c.post(t, "/api/admin/feedback", map[string]interface{}{"action": "mark_as_read", "feedback_id": id})
	assertStatus(t, rr, http.StatusOK)

	rr = c.post(t, "/api/admin/feedback", map[string]interface{}{"action": "get_feedback_by_id", "id": id})
	assertStatus(t, rr, http.StatusOK)
	var one struct {
		Data model.Feedback `json:"data"`
	}
	decodeJSON(t, rr, &one)
	if !one.Data.IsRead {
		t.Error("feedback should be read")
	}

	rr = c.post(t, "/api/admin/feedback", map[string]interface{}{"action": "archive_feedback", "feedback_id": id})
	assertStatus(t, rr, http.StatusOK)

	var list struct {
		Data []model.Feedback   `json:"data"`
		Meta model.ResponseMeta `json:"meta"`
	}
	decodeJSON(t, c.post(t, "/api/admin/feedback", map[string]interface{}{"action": "get_archived_feedback"}), &list)
	if len(list.Data) != 1 || list.Data[0].ID != id {
		t.Errorf("archived = %+v", list.Data)
	}
	decodeJSON(t, c.post(t, "/api/admin/feedback", map[string]interface{}{"action": "get_recent_feedback"}), &list)
	if len(list.Data) != 1 || list.Meta.Limit != 5 {
		t.Errorf("recent = %+v meta %+v", list.Data, list.Meta)
	}

	var stats struct {
		Data model.FeedbackStats `json:"data"`
	}
	decodeJSON(t, c.post(t, "/api/admin/feedback", map[string]interface{}{"action": "get_feedback_stats"}), &stats)
	if stats.Data.Total != 2 || stats.Data.Archived != 1 || stats.Data.Unread != 1 {
		t.Errorf("stats = %+v", stats.Data)
	}

	rr = c.post(t, "/api/admin/feedback", map[string]interface{}{"action": "restore_feedback", "feedback_id": id})
	assertStatus(t, rr, http.StatusOK)
	rr = c.post(t, "/api/admin/feedback", map[string]interface{}{"action": "delete_feedback", "feedback_id": id})
	assertStatus(t, rr, http.StatusOK)
	rr = c.post(t, "/api/admin/feedback", map[string]interface{}{"action": "delete_feedback", "feedback_id": id})
	assertStatus(t, rr, http.StatusNotFound)
}

func TestAdminStatsEndpoint(t *testing.T) {
	e := newTestEnv(t, false)
	e.seedAdmin(t, "root")
	e.seedUser(t, "alice")
	c := e.client()
	signIn(t, c, "/api/mobile/auth", "alice")

	rr := c.do(t, http.MethodGet, "/api/admin/stats", nil)
	assertStatus(t, rr, http.StatusOK)
	var resp struct {
		Success bool             `json:"success"`
		Data    model.AdminStats `json:"data"`
	}
	decodeJSON(t, rr, &resp)
	if !resp.Success || resp.Data.TotalUsers != 2 || resp.Data.ActiveUsers != 1 || resp.Data.RecentUsers != 2 {
		t.Errorf("stats = %+v", resp.Data)
	}
}
