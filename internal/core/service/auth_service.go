package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/todo-system/internal/api/metrics"
	"github.com/taskhub/todo-system/internal/core/domain"
	"github.com/taskhub/todo-system/internal/core/ports"
)

const (
	DefaultBcryptCost = 10

	msgCredentialsRequired = "Username and password required"
)

// AuthService implements registration and login.
type AuthService struct {
	repo    ports.UserRepository
	tokens  ports.TokenService
	limiter ports.LoginLimiter
	cost    int
	log     zerolog.Logger

	// dummyHash is compared against when the user does not exist so that an
	// unknown username costs the same bcrypt work as a wrong password.
	dummyHash []byte
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithBcryptCost overrides DefaultBcryptCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// WithLoginLimiter enables throttling of repeated failed logins.
func WithLoginLimiter(l ports.LoginLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenService, log zerolog.Logger, opts ...AuthOption) (*AuthService, error) {
	s := &AuthService{
		repo:   repo,
		tokens: tokens,
		cost:   DefaultBcryptCost,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("todo-system/dummy-password"), s.cost)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	s.dummyHash = hash
	return s, nil
}

// Register hashes the password and stores a new user.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	if isBlank(username) || isBlank(password) {
		metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.ResultFailure).Inc()
		return domain.NewValidationError(msgCredentialsRequired)
	}

	start := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.ResultError).Inc()
		return fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.Create(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.ResultFailure).Inc()
			s.log.Info().Str("username", username).Msg("registration rejected: username taken")
			return domain.ErrDuplicateUsername
		}
		metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.ResultError).Inc()
		return fmt.Errorf("%w: create user: %w", domain.ErrStorage, err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.ResultSuccess).Inc()
	s.log.Info().Int64("user_id", id).Str("username", username).Msg("user registered")
	return nil
}

// Login verifies the credentials and returns a signed session token. An
// unknown username and a wrong password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if isBlank(username) || isBlank(password) {
		metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.ResultFailure).Inc()
		return "", domain.NewValidationError(msgCredentialsRequired)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, username)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("login limiter check failed, continuing")
		} else if !allowed {
			metrics.LoginThrottledTotal.Inc()
			return "", domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.ResultError).Inc()
		return "", fmt.Errorf("%w: find user: %w", domain.ErrStorage, err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}

	start := time.Now()
	mismatch := bcrypt.CompareHashAndPassword(hash, []byte(password))
	metrics.PasswordHashDuration.WithLabelValues("compare").Observe(time.Since(start).Seconds())

	if user == nil || mismatch != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.ResultFailure).Inc()
		s.recordFailure(ctx, username)
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.ResultError).Inc()
		return "", err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, username); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to reset login limiter")
		}
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.ResultSuccess).Inc()
	s.log.Debug().Int64("user_id", user.ID).Msg("login succeeded")
	return token, nil
}

func (s *AuthService) recordFailure(ctx context.Context, username string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to record login failure")
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
