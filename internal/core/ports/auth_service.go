package ports

import (
	"context"

	"github.com/taskhub/todo-system/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
}

// TokenService issues and verifies stateless session tokens.
type TokenService interface {
	Issue(userID int64, username string) (string, error)
	Verify(token string) (*domain.Identity, error)
}

// LoginLimiter throttles repeated failed logins per username.
type LoginLimiter interface {
	Allow(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}
