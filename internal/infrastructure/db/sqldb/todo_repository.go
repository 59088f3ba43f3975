package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/taskhub/todo-system/internal/core/domain"
)

// TodoRepository implements ports.TodoRepository on the todos table. Every
// statement carries user_id in its WHERE clause.
type TodoRepository struct {
	db *sql.DB
}

func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Todo, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`
			SELECT id, user_id, title, completed, created_at
				FROM todos
				WHERE user_id = $1
				ORDER BY created_at DESC, id DESC
		`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	todos := []domain.Todo{}
	for rows.Next() {
		var t domain.Todo
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Completed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return todos, nil
}

func (r *TodoRepository) Create(ctx context.Context, t *domain.Todo) error {
	err := r.db.QueryRowContext(
		ctx,
		`INSERT INTO todos (user_id, title, completed, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		t.OwnerID,
		t.Title,
		t.Completed,
		t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

// Update sets only the fields present in patch.
func (r *TodoRepository) Update(ctx context.Context, ownerID, id int64, patch domain.TodoPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Completed != nil {
		args = append(args, *patch.Completed)
		sets = append(sets, fmt.Sprintf("completed = $%d", len(args)))
	}
	if len(sets) == 0 {
		return domain.NewValidationError("No updates provided")
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(
		`UPDATE todos SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(sets, ", "),
		len(args)-1,
		len(args),
	)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	return requireAffected(res)
}

func (r *TodoRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM todos WHERE id = $1 AND user_id = $2`,
		id,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrTodoNotFound
	}
	return nil
}
