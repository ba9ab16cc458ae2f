package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arcoapp/arco-admin/internal/config"
	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/notify"
	"github.com/arcoapp/arco-admin/internal/session"
)

// Defaults for Options fields left zero.
const (
	DefaultCodeTTL   = 15 * time.Minute
	DefaultJWTExpiry = 8 * time.Hour
)

const jwtIssuer = "arco"

// Options tune the sign-in flow.
type Options struct {
	CodeTTL       time.Duration
	JWTExpiry     time.Duration
	MobileCaptcha bool // apply the CAPTCHA gate to the mobile flow
	BcryptCost    int
	Logger        *slog.Logger
	Now           func() time.Time
	Random        RandomFunc
}

// policy is what an audience allows.
type policy struct {
	allow      func(role string) bool
	denied     string
	captcha    bool
	loginEmail bool // accept an email address in place of the username
}

// AuthService runs the two-step sign-in flow: password check, optional
// CAPTCHA, a one-time code by email, then code verification.
type AuthService struct {
	store     *config.Store
	notifier  notify.Notifier
	jwtSecret []byte
	hasher    Hasher
	codeTTL   time.Duration
	jwtTTL    time.Duration
	policies  map[model.Audience]policy
	logger    *slog.Logger
	now       func() time.Time
	random    RandomFunc

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires the flow to its store and notifier.
func NewAuthService(store *config.Store, notifier notify.Notifier, jwtSecret string, opts Options) *AuthService {
	s := &AuthService{
		store:     store,
		notifier:  notifier,
		jwtSecret: []byte(jwtSecret),
		hasher:    Hasher{Cost: opts.BcryptCost},
		codeTTL:   opts.CodeTTL,
		jwtTTL:    opts.JWTExpiry,
		logger:    opts.Logger,
		now:       opts.Now,
		random:    opts.Random,
	}
	if s.codeTTL <= 0 {
		s.codeTTL = DefaultCodeTTL
	}
	if s.jwtTTL <= 0 {
		s.jwtTTL = DefaultJWTExpiry
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.random == nil {
		s.random = CryptoRandom
	}
	s.policies = map[model.Audience]policy{
		model.AudienceAdmin: {
			allow:   func(role string) bool { return role == model.RoleAdmin },
			denied:  "Access denied. Admin privileges required.",
			captcha: true,
		},
		model.AudienceMobile: {
			allow:      func(role string) bool { return role != model.RoleAdmin },
			denied:     "Admin accounts cannot login through the mobile app. Please use the web admin portal.",
			captcha:    opts.MobileCaptcha,
			loginEmail: true,
		},
	}
	return s
}

// CodeTTL returns how long issued codes stay valid.
func (s *AuthService) CodeTTL() time.Duration { return s.codeTTL }

func (s *AuthService) policy(aud model.Audience) (policy, error) {
	p, ok := s.policies[aud]
	if !ok {
		return policy{}, fail(ErrInvalidInput, "Unknown audience")
	}
	return p, nil
}

// LoginInput is the first step of a sign-in.
type LoginInput struct {
	Username string
	Password string
	Captcha  string
}

// LoginResult reports an issued code.
type LoginResult struct {
	User      *model.User
	EmailSent bool
}

// Login checks credentials, the role of the account and the CAPTCHA gate,
// in that order, and on success emails a fresh verification code. A failed
// delivery does not fail the login; it is reported through EmailSent.
func (s *AuthService) Login(ctx context.Context, aud model.Audience, st *session.State, in LoginInput) (*LoginResult, error) {
	p, err := s.policy(aud)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fail(ErrInvalidInput, "Username and password required")
	}
	log := s.logger.With("audience", aud, "username", username)

	var user *model.User
	if p.loginEmail {
		user, err = s.store.GetUserByLogin(ctx, username, false)
	} else {
		user, err = s.store.GetUserByUsername(ctx, username, false)
	}
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		log.Error("login lookup failed", "error", err)
		return nil, unavailable(err)
	}
	if user == nil || !s.hasher.Matches(user.PasswordHash, in.Password) {
		if user == nil {
			s.burnCompare(in.Password)
		}
		st.RecordFailure(username)
		log.Warn("login rejected", "attempts", st.Attempts(username))
		return nil, fail(ErrInvalidCredentials, "Invalid username or password")
	}

	if !p.allow(user.Role) {
		log.Warn("login denied for role", "user_id", user.ID, "role", user.Role)
		return nil, fail(ErrAccessDenied, p.denied)
	}

	if p.captcha {
		answer := strings.TrimSpace(in.Captcha)
		if answer != "" {
			expected := st.Captcha
			st.Captcha = ""
			if expected == "" || answer != expected {
				log.Warn("login captcha mismatch", "user_id", user.ID)
				return nil, fail(ErrCaptchaInvalid, "Invalid CAPTCHA")
			}
		} else if st.Attempts(username) >= 1 {
			log.Info("login requires captcha", "user_id", user.ID)
			return nil, fail(ErrCaptchaRequired, "CAPTCHA required")
		}
	}

	sent, err := s.issueAndSend(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	st.ResetAttempts(username)
	log.Info("verification code issued", "user_id", user.ID, "email_sent", sent)
	return &LoginResult{User: user, EmailSent: sent}, nil
}

// burnCompare spends a bcrypt comparison when the account does not exist,
// so response time does not reveal which usernames are registered.
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("arco-dummy-password")
	})
	s.hasher.Matches(s.dummyHash, password)
}

// issueAndSend replaces the live code of userID and mails it.
func (s *AuthService) issueAndSend(ctx context.Context, userID int64, email string) (bool, error) {
	code, err := NewCode(s.random)
	if err != nil {
		return false, &Error{Kind: ErrStoreUnavailable, Message: "Internal server error", Cause: err}
	}
	now := s.now().UTC()
	if err := s.store.UpsertCode(ctx, userID, config.HashCode(code), now.Add(s.codeTTL), now); err != nil {
		s.logger.Error("store verification code", "user_id", userID, "error", err)
		return false, unavailable(err)
	}
	if s.notifier == nil {
		return false, nil
	}
	if err := s.notifier.SendCode(ctx, email, code); err != nil {
		s.logger.Warn("verification email not delivered", "user_id", userID, "error", err)
		return false, nil
	}
	return true, nil
}

// VerifyResult is a completed sign-in.
type VerifyResult struct {
	User      *model.SessionUser
	Token     string
	ExpiresAt time.Time
}

// VerifyCode checks a submitted code. A matching code is consumed even when
// the account no longer qualifies for the audience; in that case the
// result is ErrAccessDenied. On success the session is signed in and a
// bearer token is issued.
func (s *AuthService) VerifyCode(ctx context.Context, aud model.Audience, st *session.State, userID int64, code string) (*VerifyResult, error) {
	p, err := s.policy(aud)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if userID <= 0 || code == "" {
		return nil, fail(ErrInvalidInput, "User ID and token required")
	}
	log := s.logger.With("audience", aud, "user_id", userID)

	now := s.now().UTC()
	hash := config.HashCode(code)
	if _, err := s.store.FindValidCode(ctx, userID, hash, now); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			log.Warn("verification code rejected")
			return nil, fail(ErrCodeInvalidOrExpired, "Invalid or expired code")
		}
		log.Error("verification code lookup failed", "error", err)
		return nil, unavailable(err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return nil, unavailable(err)
	}

	consumed, err := s.store.ConsumeCode(ctx, userID, hash)
	if err != nil {
		return nil, unavailable(err)
	}

	switch {
	case user == nil || user.IsArchived:
		log.Warn("verification for missing or archived account")
		return nil, fail(ErrAccessDenied, "User not found or account archived")
	case !p.allow(user.Role):
		log.Warn("verification denied for role", "role", user.Role)
		return nil, fail(ErrAccessDenied, p.denied)
	case !consumed:
		log.Warn("verification code already consumed")
		return nil, fail(ErrCodeInvalidOrExpired, "Invalid or expired code")
	}

	if err := s.store.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Warn("update last login", "error", err)
	}

	snap := user.Snapshot()
	token, expiresAt, err := s.IssueJWT(ctx, snap, aud)
	if err != nil {
		return nil, &Error{Kind: ErrStoreUnavailable, Message: "Internal server error", Cause: err}
	}
	st.SignIn(snap, aud, now)
	log.Info("sign-in complete")
	return &VerifyResult{User: snap, Token: token, ExpiresAt: expiresAt}, nil
}

const resendDenied = "User not found or email mismatch"

// ResendResult reports a reissued code.
type ResendResult struct {
	EmailSent bool
}

// ResendCode issues a fresh code, invalidating the previous one, after
// checking that email is the address on file for userID.
func (s *AuthService) ResendCode(ctx context.Context, aud model.Audience, userID int64, email string) (*ResendResult, error) {
	p, err := s.policy(aud)
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if userID <= 0 || email == "" {
		return nil, fail(ErrInvalidInput, "User ID and email required")
	}
	log := s.logger.With("audience", aud, "user_id", userID)

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return nil, unavailable(err)
	}
	// Both rejections share one message so a known user_id does not reveal
	// which side of the app the account belongs to.
	if user == nil || user.IsArchived || !strings.EqualFold(user.Email, email) {
		log.Warn("resend rejected")
		return nil, fail(ErrAccessDenied, resendDenied)
	}
	if !p.allow(user.Role) {
		log.Warn("resend denied for role", "role", user.Role)
		return nil, fail(ErrAccessDenied, resendDenied)
	}

	sent, err := s.issueAndSend(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	log.Info("verification code reissued", "email_sent", sent)
	return &ResendResult{EmailSent: sent}, nil
}

// GenerateCaptcha stores a new CAPTCHA answer in st and returns it with its
// options.
func (s *AuthService) GenerateCaptcha(st *session.State) (Captcha, error) {
	c, err := NewCaptcha(s.random)
	if err != nil {
		return Captcha{}, &Error{Kind: ErrStoreUnavailable, Message: "Internal server error", Cause: err}
	}
	st.Captcha = c.Code
	return c, nil
}

// VerifyCaptcha checks answer against the stored CAPTCHA and clears it on a
// match.
func (s *AuthService) VerifyCaptcha(st *session.State, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fail(ErrInvalidInput, "CAPTCHA required")
	}
	if st.Captcha == "" || answer != st.Captcha {
		return fail(ErrCaptchaInvalid, "Invalid CAPTCHA")
	}
	st.Captcha = ""
	return nil
}

// Logout forgets everything the session holds.
func (s *AuthService) Logout(st *session.State) {
	if st.User != nil {
		s.logger.Info("logout", "user_id", st.User.ID, "audience", st.Audience)
	}
	st.Clear()
}

// Principal is the identity carried by a bearer token.
type Principal struct {
	UserID   int64
	Username string
	Email    string
	Role     string
	Audience model.Audience
}

// IsAdmin reports whether the token was issued to an admin by the admin flow.
func (p *Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin && p.Audience == model.AudienceAdmin
}

type jwtClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IssueJWT creates a signed bearer token for u.
func (s *AuthService) IssueJWT(ctx context.Context, u *model.SessionUser, aud model.Audience) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtTTL)
	claims := jwtClaims{
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			Audience:  jwt.ClaimStrings{string(aud)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    jwtIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateJWT verifies a bearer token and returns its principal.
func (s *AuthService) ValidateJWT(ctx context.Context, tokenStr string) (*Principal, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(jwtIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || len(claims.Audience) != 1 {
		return nil, ErrInvalidCredentials
	}
	return &Principal{
		UserID:   id,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
		Audience: model.Audience(claims.Audience[0]),
	}, nil
}
