package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhub/todo-system/internal/api/metrics"
	"github.com/taskhub/todo-system/internal/core/domain"
	"github.com/taskhub/todo-system/internal/core/ports"
)

const (
	msgTitleRequired = "Title required"
	msgTitleEmpty    = "Title cannot be empty"
	msgNoUpdates     = "No updates provided"
)

type TodoService struct {
	repo   ports.TodoRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewTodoService(repo ports.TodoRepository, logger zerolog.Logger) *TodoService {
	return &TodoService{repo: repo, logger: logger, now: time.Now}
}

// List returns the caller's todos, newest first. Never nil.
func (s *TodoService) List(ctx context.Context, callerID int64) ([]domain.Todo, error) {
	todos, err := s.repo.ListByOwner(ctx, callerID)
	if err != nil {
		metrics.TodoOperationsTotal.WithLabelValues("list", metrics.ResultError).Inc()
		return nil, fmt.Errorf("%w: list todos: %w", domain.ErrStorage, err)
	}
	if todos == nil {
		todos = []domain.Todo{}
	}

	metrics.TodoOperationsTotal.WithLabelValues("list", metrics.ResultSuccess).Inc()
	return todos, nil
}

// Create stores a new, not yet completed todo owned by the caller.
func (s *TodoService) Create(ctx context.Context, callerID int64, title string) (*domain.Todo, error) {
	if isBlank(title) {
		metrics.TodoOperationsTotal.WithLabelValues("create", metrics.ResultFailure).Inc()
		return nil, domain.NewValidationError(msgTitleRequired)
	}

	todo := &domain.Todo{
		OwnerID:   callerID,
		Title:     title,
		Completed: false,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		metrics.TodoOperationsTotal.WithLabelValues("create", metrics.ResultError).Inc()
		s.logger.Error().Err(err).Int64("user_id", callerID).Msg("failed to create todo")
		return nil, fmt.Errorf("%w: create todo: %w", domain.ErrStorage, err)
	}

	metrics.TodoOperationsTotal.WithLabelValues("create", metrics.ResultSuccess).Inc()
	s.logger.Info().Int64("todo_id", todo.ID).Int64("user_id", callerID).Msg("todo created")
	return todo, nil
}

// Update applies a partial update to one of the caller's todos.
func (s *TodoService) Update(ctx context.Context, callerID, id int64, patch domain.TodoPatch) error {
	if patch.IsEmpty() {
		metrics.TodoOperationsTotal.WithLabelValues("update", metrics.ResultFailure).Inc()
		return domain.NewValidationError(msgNoUpdates)
	}
	if patch.Title != nil && isBlank(*patch.Title) {
		metrics.TodoOperationsTotal.WithLabelValues("update", metrics.ResultFailure).Inc()
		return domain.NewValidationError(msgTitleEmpty)
	}

	return s.mutate(ctx, "update", callerID, id, func(ctx context.Context) error {
		return s.repo.Update(ctx, callerID, id, patch)
	})
}

// Delete removes one of the caller's todos.
func (s *TodoService) Delete(ctx context.Context, callerID, id int64) error {
	return s.mutate(ctx, "delete", callerID, id, func(ctx context.Context) error {
		return s.repo.Delete(ctx, callerID, id)
	})
}

// mutate runs an owner-scoped write and maps its outcome.
func (s *TodoService) mutate(ctx context.Context, op string, callerID, id int64, write func(context.Context) error) error {
	err := write(ctx)
	switch {
	case err == nil:
		metrics.TodoOperationsTotal.WithLabelValues(op, metrics.ResultSuccess).Inc()
		s.logger.Debug().Str("op", op).Int64("todo_id", id).Int64("user_id", callerID).Msg("todo mutated")
		return nil
	case errors.Is(err, domain.ErrTodoNotFound):
		metrics.TodoOperationsTotal.WithLabelValues(op, metrics.ResultFailure).Inc()
		return domain.ErrTodoNotFound
	default:
		metrics.TodoOperationsTotal.WithLabelValues(op, metrics.ResultError).Inc()
		s.logger.Error().Err(err).Str("op", op).Int64("todo_id", id).Msg("todo write failed")
		return fmt.Errorf("%w: %s todo: %w", domain.ErrStorage, op, err)
	}
}
