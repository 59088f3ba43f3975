package ports

import (
	"context"

	"github.com/taskhub/todo-system/internal/core/domain"
)

// TodoRepository defines persistence operations for todos. Every method is
// scoped by ownerID in the store query itself.
type TodoRepository interface {
	// ListByOwner returns the owner's todos, newest first.
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Todo, error)
	// Create inserts t and fills in its ID.
	Create(ctx context.Context, t *domain.Todo) error
	// Update applies patch to the todo matching both id and ownerID.
	// Returns domain.ErrTodoNotFound when nothing matched.
	Update(ctx context.Context, ownerID, id int64, patch domain.TodoPatch) error
	// Delete removes the todo matching both id and ownerID.
	// Returns domain.ErrTodoNotFound when nothing matched.
	Delete(ctx context.Context, ownerID, id int64) error
}
