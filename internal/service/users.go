package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/arcoapp/arco-admin/internal/config"
	"github.com/arcoapp/arco-admin/internal/model"
)

// MinPasswordLength applies to every password set through the services.
const MinPasswordLength = 8

// UserService manages accounts: self sign-up and password reset for app
// users, and the admin operations of the dashboard.
type UserService struct {
	store  *config.Store
	hasher Hasher
	logger *slog.Logger
}

// NewUserService returns a UserService hashing with bcrypt at cost (0 for
// the library default).
func NewUserService(store *config.Store, cost int, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: store, hasher: Hasher{Cost: cost}, logger: logger}
}

// CheckUsername reports whether name is free as both a username and an
// email address.
func (s *UserService) CheckUsername(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fail(ErrInvalidInput, "Username required")
	}
	taken, err := s.store.UsernameOrEmailTaken(ctx, name, name)
	if err != nil {
		return false, unavailable(err)
	}
	return !taken, nil
}

// SignUpInput is a mobile self-registration.
type SignUpInput struct {
	Username         string
	FirstName        string
	LastName         string
	Password         string
	Email            string
	SecurityQuestion string
	SecurityAnswer   string
}

// SignUp registers an app user with the user role.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" || in.Password == "" || in.Email == "" {
		return nil, fail(ErrInvalidInput, "All required fields must be filled")
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if (in.SecurityQuestion == "") != (in.SecurityAnswer == "") {
		return nil, fail(ErrInvalidInput, "Security question and answer must be given together")
	}

	u := &model.User{
		Username:         in.Username,
		Email:            in.Email,
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Role:             model.RoleUser,
		SecurityQuestion: strings.TrimSpace(in.SecurityQuestion),
	}
	if err := s.setSecrets(u, in.Password, in.SecurityAnswer); err != nil {
		return nil, err
	}
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// ResetPassword sets a new password for username when the security
// question and answer match the ones on file.
func (s *UserService) ResetPassword(ctx context.Context, username, question, answer, newPassword string) error {
	username = strings.TrimSpace(username)
	question = strings.TrimSpace(question)
	if username == "" || question == "" || strings.TrimSpace(answer) == "" || newPassword == "" {
		return fail(ErrInvalidInput, "All fields are required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	const mismatch = "Invalid security question or answer"
	u, err := s.store.GetUserByUsername(ctx, username, false)
	if errors.Is(err, config.ErrNotFound) {
		return fail(ErrInvalidCredentials, mismatch)
	}
	if err != nil {
		return unavailable(err)
	}
	if u.SecurityQuestion == "" || u.SecurityQuestion != question || !s.hasher.AnswerMatches(u.SecurityAnswerHash, answer) {
		s.logger.Warn("password reset rejected", "user_id", u.ID)
		return fail(ErrInvalidCredentials, mismatch)
	}
	if err := s.setPassword(ctx, u.ID, newPassword); err != nil {
		return err
	}
	s.logger.Info("password reset", "user_id", u.ID)
	return nil
}

// ListUsers returns accounts matching f.
func (s *UserService) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, fail(ErrInvalidInput, "Limit and offset must not be negative")
	}
	users, err := s.store.ListUsers(ctx, f)
	if err != nil {
		return nil, unavailable(err)
	}
	return users, nil
}

// GetUser returns one account, archived or not.
func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "User not found")
	}
	return u, nil
}

// ArchiveUser soft-deletes an account.
func (s *UserService) ArchiveUser(ctx context.Context, id int64) error {
	return s.setArchived(ctx, id, true)
}

// RestoreUser reverses ArchiveUser.
func (s *UserService) RestoreUser(ctx context.Context, id int64) error {
	return s.setArchived(ctx, id, false)
}

// UpdateStatus sets an account to "active" or "archived".
func (s *UserService) UpdateStatus(ctx context.Context, id int64, status string) error {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case model.StatusActive:
		return s.setArchived(ctx, id, false)
	case model.StatusArchived:
		return s.setArchived(ctx, id, true)
	default:
		return fail(ErrInvalidInput, "Status must be active or archived")
	}
}

func (s *UserService) setArchived(ctx context.Context, id int64, archived bool) error {
	if id <= 0 {
		return fail(ErrInvalidInput, "User ID required")
	}
	if err := s.store.SetUserArchived(ctx, id, archived); err != nil {
		return storeError(err, "User not found")
	}
	if archived {
		// An archived account cannot finish a sign-in already in flight.
		if err := s.store.DeleteCode(ctx, id); err != nil {
			return unavailable(err)
		}
	}
	s.logger.Info("user archive state changed", "user_id", id, "archived", archived)
	return nil
}

// AddUserInput is an account created from the dashboard.
type AddUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	Status    string
}

// AddUser creates a non-admin account. Admins are only created from the
// command line with CreateAdmin. Without a password the account cannot
// sign in until one is set with UpdatePassword.
func (s *UserService) AddUser(ctx context.Context, in AddUserInput) (*model.User, error) {
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if in.Role == model.RoleAdmin {
		return nil, fail(ErrAccessDenied, "Cannot create admin users through this interface")
	}
	if in.Role != model.RoleUser {
		return nil, fail(ErrInvalidInput, "Unknown role")
	}
	return s.add(ctx, in)
}

// CreateAdmin creates an admin account.
func (s *UserService) CreateAdmin(ctx context.Context, in AddUserInput) (*model.User, error) {
	if in.Password == "" {
		return nil, fail(ErrInvalidInput, "Password required")
	}
	in.Role = model.RoleAdmin
	in.Status = model.StatusActive
	return s.add(ctx, in)
}

func (s *UserService) add(ctx context.Context, in AddUserInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" {
		return nil, fail(ErrInvalidInput, "Missing required fields")
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	var archived bool
	switch strings.ToLower(in.Status) {
	case "", model.StatusActive:
	case model.StatusArchived:
		archived = true
	default:
		return nil, fail(ErrInvalidInput, "Status must be active or archived")
	}

	u := &model.User{
		Username:   in.Username,
		Email:      in.Email,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Role:       in.Role,
		IsArchived: archived,
	}
	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
		if err := s.setSecrets(u, in.Password, ""); err != nil {
			return nil, err
		}
	}
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user added", "user_id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

// UpdatePassword replaces the password of an account.
func (s *UserService) UpdatePassword(ctx context.Context, id int64, newPassword string) error {
	if id <= 0 || newPassword == "" {
		return fail(ErrInvalidInput, "User ID and new password required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := s.setPassword(ctx, id, newPassword); err != nil {
		return err
	}
	s.logger.Info("password updated", "user_id", id)
	return nil
}

func (s *UserService) setPassword(ctx context.Context, id int64, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return &Error{Kind: ErrInvalidInput, Message: "Password cannot be used", Cause: err}
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return storeError(err, "User not found")
	}
	return nil
}

func (s *UserService) setSecrets(u *model.User, password, answer string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return &Error{Kind: ErrInvalidInput, Message: "Password cannot be used", Cause: err}
	}
	u.PasswordHash = hash
	if answer != "" {
		ah, err := s.hasher.HashAnswer(answer)
		if err != nil {
			return &Error{Kind: ErrInvalidInput, Message: "Security answer cannot be used", Cause: err}
		}
		u.SecurityAnswerHash = ah
	}
	return nil
}

func (s *UserService) create(ctx context.Context, u *model.User) error {
	if err := s.store.CreateUser(ctx, u); err != nil {
		return storeError(err, "User not found")
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fail(ErrInvalidInput, "Invalid email address")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return fail(ErrInvalidInput, "Password must be at least 8 characters")
	}
	// bcrypt ignores everything past 72 bytes.
	if len(pw) > 72 {
		return fail(ErrInvalidInput, "Password must be at most 72 bytes")
	}
	return nil
}
