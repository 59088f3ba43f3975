package handler

import "github.com/taskhub/todo-system/internal/core/domain"

func toTodoResponse(t domain.Todo) todoResponse {
	return todoResponse{
		ID:        t.ID,
		UserID:    t.OwnerID,
		Title:     t.Title,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt.UTC(),
	}
}

func toTodoListResponse(todos []domain.Todo) []todoResponse {
	out := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		out = append(out, toTodoResponse(t))
	}
	return out
}

func toPatch(req updateTodoRequest) domain.TodoPatch {
	return domain.TodoPatch{
		Title:     req.Title,
		Completed: req.Completed,
	}
}
