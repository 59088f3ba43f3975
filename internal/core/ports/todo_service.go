package ports

import (
	"context"

	"github.com/taskhub/todo-system/internal/core/domain"
)

// TodoService defines use-case operations for todos. callerID is the
// authenticated user's id and scopes every operation.
type TodoService interface {
	List(ctx context.Context, callerID int64) ([]domain.Todo, error)
	Create(ctx context.Context, callerID int64, title string) (*domain.Todo, error)
	Update(ctx context.Context, callerID, id int64, patch domain.TodoPatch) error
	Delete(ctx context.Context, callerID, id int64) error
}
