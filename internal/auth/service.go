package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"budget-tracker/internal/apperr"
	"budget-tracker/internal/models"
	"budget-tracker/internal/storage"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrDuplicateEmail is returned by Signup when the email is already registered.
	ErrDuplicateEmail = apperr.New(apperr.ErrValidation, "email already registered")
	// ErrInvalidCredentials is returned by Login. The message is the same for an
	// unknown email and a wrong password.
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "invalid email or password")
	// ErrInvalidToken is returned by Verify for bad signatures and expired tokens.
	ErrInvalidToken = apperr.New(apperr.ErrUnauthorized, "invalid or expired token")
)

// UserStore is the part of storage.Store the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Credentials is the body of the signup and login requests.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Service wraps authentication business rules.
type Service struct {
	users     UserStore
	tokens    *TokenIssuer
	validator *validator.Validate
}

// NewService constructs a new Service.
func NewService(users UserStore, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens, validator: validator.New()}
}

// NormalizeEmail trims and lower-cases an email so lookups are case insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new user and returns a token bound to it.
func (s *Service) Signup(ctx context.Context, email, password string) (string, *models.User, error) {
	creds := Credentials{Email: NormalizeEmail(email), Password: password}
	if err := s.validator.Struct(creds); err != nil {
		return "", nil, credentialsError(err)
	}

	if _, err := s.users.GetUserByEmail(ctx, creds.Email); err == nil {
		return "", nil, ErrDuplicateEmail
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := HashPassword(creds.Password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, creds.Email, hash)
	if err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, storage.ErrDuplicate) {
			return "", nil, ErrDuplicateEmail
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Login validates email/password credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Verify returns the identity embedded in a valid token.
func (s *Service) Verify(token string) (*Identity, error) {
	return s.tokens.Verify(token)
}

func credentialsError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("invalid credentials payload")
	}
	fe := fieldErrs[0]
	switch {
	case fe.Field() == "Email" && fe.Tag() == "email":
		return apperr.Validation("email is not a valid address")
	default:
		return apperr.Validation("%s is required", strings.ToLower(fe.Field()))
	}
}
