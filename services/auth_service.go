package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"lorecrafter/auth"
	"lorecrafter/models"
	"lorecrafter/repositories"
)

// The AuthService interface defines registration and credential checks
type AuthService interface {
	Register(ctx context.Context, input *RegisterInput) (*models.User, error)
	Login(ctx context.Context, input *LoginInput) (*models.User, error)
}

// --- Structs for Input ---
type RegisterInput struct {
	Username string `json:"username" description:"Display name"`
	Email    string `json:"email" description:"Unique login email"`
	Password string `json:"password" description:"Plaintext password, hashed before storage"`
}

type LoginInput struct {
	Email    string `json:"email" description:"Email used at registration"`
	Password string `json:"password" description:"Password"`
}

type authService struct {
	store repositories.Store // nil when the database is unreachable
	now   func() time.Time
}

var _ AuthService = (*authService)(nil)

// NewAuthService creates a new AuthService instance. store may be nil.
func NewAuthService(store repositories.Store) AuthService {
	return &authService{store: store, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a unique email.
func (s *authService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	if s.store == nil {
		return nil, errNoDatabase
	}
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return nil, newError(ErrValidation, "Username, email and password are required", nil)
	}
	if len(input.Password) > auth.MaxPasswordBytes {
		return nil, newError(ErrValidation, "Password must be at most 72 bytes", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, newError(ErrValidation, "Invalid email address", nil)
	}

	users := s.store.Users()
	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return nil, newError(ErrConflict, "Email already registered", nil)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(ErrStorage, "Failed to check existing user", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, newError(ErrStorage, "Could not hash password", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(ErrConflict, "Email already registered", nil)
		}
		return nil, newError(ErrStorage, "Failed to create user", err)
	}
	return user, nil
}

// Login returns the user whose credentials match. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, input *LoginInput) (*models.User, error) {
	if s.store == nil {
		return nil, errNoDatabase
	}
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, newError(ErrValidation, "Email and password are required", nil)
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "Invalid credentials", nil)
		}
		return nil, newError(ErrStorage, "Failed to look up user", err)
	}
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		return nil, newError(ErrUnauthorized, "Invalid credentials", nil)
	}
	return user, nil
}
