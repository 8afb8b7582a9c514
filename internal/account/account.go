package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"curabot/internal/auth"
	"curabot/internal/db"
	"curabot/internal/session"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError wraps a rejected signup or login form
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid request: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// Store persists registered users
type Store interface {
	CreateUser(ctx context.Context, u *db.User) error
	FindUserByEmail(ctx context.Context, email string) (*db.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type SignUpRequest struct {
	FirstName       string `json:"first_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   *session.Session
}

type Service struct {
	store    Store
	tokens   *auth.TokenManager
	sessions *session.Registry
	validate *validator.Validate
}

func NewService(store Store, tokens *auth.TokenManager, sessions *session.Registry) *Service {
	return &Service{
		store:    store,
		tokens:   tokens,
		sessions: sessions,
		validate: validator.New(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*db.User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.Email = normalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Err: err}
	}

	if _, err := s.store.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, db.ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &db.User{
		FirstName:    req.FirstName,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	log.Info().Str("email", user.Email).Msg("User signed up")
	return user, nil
}

// Login verifies the password and starts a session bound to a new token
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Err: err}
	}

	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// the session is shared with the sweeper once created, so its expiry is fixed up front
	expiresAt := time.Now().Add(s.tokens.TTL())
	sess, err := s.sessions.Create(user.Email, user.FirstName, expiresAt)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.IssueUntil(sess.ID, user.Email, user.FirstName, expiresAt)
	if err != nil {
		s.sessions.Delete(sess.ID)
		return nil, err
	}

	if err := s.store.TouchLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		log.Warn().Str("email", user.Email).Err(err).Msg("Failed to record last login")
	}

	log.Info().Str("email", user.Email).Str("session", sess.ID).Msg("User logged in")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Session: sess}, nil
}

// Logout ends the session along with its report and history
func (s *Service) Logout(sessionID string) {
	if s.sessions.Delete(sessionID) {
		log.Info().Str("session", sessionID).Msg("User logged out")
	}
}
