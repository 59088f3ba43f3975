package ports

import (
	"context"

	"github.com/taskhub/todo-system/internal/core/domain"
)

// UserRepository defines persistence operations for credentials.
type UserRepository interface {
	// Create inserts a user and returns its id. Returns domain.ErrDuplicateUsername
	// when the username is taken (exact, case-sensitive match).
	Create(ctx context.Context, username, passwordHash string) (int64, error)
	// FindByUsername returns domain.ErrUserNotFound when no such user exists.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}
