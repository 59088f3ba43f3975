package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/todo-system/internal/core/domain"
)

type stubTodoService struct {
	listFn   func(ctx context.Context, callerID int64) ([]domain.Todo, error)
	createFn func(ctx context.Context, callerID int64, title string) (*domain.Todo, error)
	updateFn func(ctx context.Context, callerID, id int64, patch domain.TodoPatch) error
	deleteFn func(ctx context.Context, callerID, id int64) error
}

func (s *stubTodoService) List(ctx context.Context, callerID int64) ([]domain.Todo, error) {
	return s.listFn(ctx, callerID)
}

func (s *stubTodoService) Create(ctx context.Context, callerID int64, title string) (*domain.Todo, error) {
	return s.createFn(ctx, callerID, title)
}

func (s *stubTodoService) Update(ctx context.Context, callerID, id int64, patch domain.TodoPatch) error {
	return s.updateFn(ctx, callerID, id, patch)
}

func (s *stubTodoService) Delete(ctx context.Context, callerID, id int64) error {
	return s.deleteFn(ctx, callerID, id)
}

const callerID int64 = 42

// authed returns a context as the Auth middleware would leave it.
func authed(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := jsonContext(e, method, target, body)
	req := c.Request()
	c.SetRequest(req.WithContext(domain.WithIdentity(req.Context(), domain.Identity{ID: callerID, Username: "alice"})))
	return c, rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func TestTodoHandler_List(t *testing.T) {
	e := newEcho()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stub := &stubTodoService{
		listFn: func(ctx context.Context, id int64) ([]domain.Todo, error) {
			if id != callerID {
				t.Fatalf("expected caller %d, got %d", callerID, id)
			}
			return []domain.Todo{{ID: 2, OwnerID: callerID, Title: "Buy milk", CreatedAt: created}}, nil
		},
	}
	handler := NewTodoHandler(stub)

	c, rec := authed(e, http.MethodGet, "/api/todos", "")
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected one todo, got %d", len(resp))
	}
	got := resp[0]
	if got["title"] != "Buy milk" || got["completed"] != false || got["user_id"] != float64(callerID) {
		t.Fatalf("unexpected todo: %+v", got)
	}
	if got["created_at"] != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected created_at: %v", got["created_at"])
	}
}

func TestTodoHandler_List_EmptyIsArray(t *testing.T) {
	e := newEcho()
	stub := &stubTodoService{
		listFn: func(ctx context.Context, id int64) ([]domain.Todo, error) { return nil, nil },
	}
	handler := NewTodoHandler(stub)

	c, rec := authed(e, http.MethodGet, "/api/todos", "")
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}
}

func TestTodoHandler_RequiresIdentity(t *testing.T) {
	e := newEcho()
	handler := NewTodoHandler(&stubTodoService{})

	c, _ := jsonContext(e, http.MethodGet, "/api/todos", "")
	if err := handler.List(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTodoHandler_Create(t *testing.T) {
	e := newEcho()
	stub := &stubTodoService{
		createFn: func(ctx context.Context, id int64, title string) (*domain.Todo, error) {
			if id != callerID || title != "Buy milk" {
				t.Fatalf("unexpected args: %d %q", id, title)
			}
			return &domain.Todo{ID: 1, OwnerID: id, Title: title, CreatedAt: time.Now()}, nil
		},
	}
	handler := NewTodoHandler(stub)

	c, rec := authed(e, http.MethodPost, "/api/todos", `{"title":"Buy milk"}`)
	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp todoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != 1 || resp.Title != "Buy milk" || resp.Completed {
		t.Fatalf("unexpected todo: %+v", resp)
	}
}

func TestTodoHandler_Create_BlankTitle(t *testing.T) {
	e := newEcho()
	stub := &stubTodoService{
		createFn: func(ctx context.Context, id int64, title string) (*domain.Todo, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewTodoHandler(stub)

	for _, body := range []string{`{}`, `{"title":""}`, `{"title":"   "}`} {
		c, _ := authed(e, http.MethodPost, "/api/todos", body)
		assertValidation(t, handler.Create(c), "Title required")
	}
}

func TestTodoHandler_Update_Partial(t *testing.T) {
	e := newEcho()
	stub := &stubTodoService{
		updateFn: func(ctx context.Context, caller, id int64, patch domain.TodoPatch) error {
			if caller != callerID || id != 9 {
				t.Fatalf("unexpected ids: %d %d", caller, id)
			}
			if patch.Title != nil {
				t.Fatalf("title should be absent, got %q", *patch.Title)
			}
			if patch.Completed == nil || !*patch.Completed {
				t.Fatalf("expected completed=true")
			}
			return nil
		},
	}
	handler := NewTodoHandler(stub)

	c, rec := authed(e, http.MethodPut, "/api/todos/9", `{"completed":true}`)
	if err := handler.Update(withID(c, "9")); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec.Code != http.StatusOK || resp.Message != "Todo updated" {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
}

func TestTodoHandler_Update_EmptyPatchReachesService(t *testing.T) {
	e := newEcho()
	stub := &stubTodoService{
		updateFn: func(ctx context.Context, caller, id int64, patch domain.TodoPatch) error {
			if !patch.IsEmpty() {
				t.Fatalf("expected empty patch, got %+v", patch)
			}
			return domain.NewValidationError("No updates provided")
		},
	}
	handler := NewTodoHandler(stub)

	c, _ := authed(e, http.MethodPut, "/api/todos/9", `{}`)
	assertValidation(t, handler.Update(withID(c, "9")), "No updates provided")
}

func TestTodoHandler_Update_BlankTitle(t *testing.T) {
	e := newEcho()
	handler := NewTodoHandler(&stubTodoService{
		updateFn: func(ctx context.Context, caller, id int64, patch domain.TodoPatch) error {
			t.Fatalf("should not be called")
			return nil
		},
	})

	c, _ := authed(e, http.MethodPut, "/api/todos/9", `{"title":"   "}`)
	assertValidation(t, handler.Update(withID(c, "9")), "Title cannot be empty")
}

func TestTodoHandler_NonNumericIDIsNotFound(t *testing.T) {
	e := newEcho()
	handler := NewTodoHandler(&stubTodoService{})

	for _, id := range []string{"abc", "0", "-3", "1.5"} {
		c, _ := authed(e, http.MethodDelete, "/api/todos/"+id, "")
		if err := handler.Delete(withID(c, id)); !errors.Is(err, domain.ErrTodoNotFound) {
			t.Fatalf("id %q: expected ErrTodoNotFound, got %v", id, err)
		}
	}
}

func TestTodoHandler_Delete(t *testing.T) {
	e := newEcho()
	stub := &stubTodoService{
		deleteFn: func(ctx context.Context, caller, id int64) error {
			if id == 5 {
				return nil
			}
			return domain.ErrTodoNotFound
		},
	}
	handler := NewTodoHandler(stub)

	c, rec := authed(e, http.MethodDelete, "/api/todos/5", "")
	if err := handler.Delete(withID(c, "5")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Message != "Todo deleted" {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	c, _ = authed(e, http.MethodDelete, "/api/todos/6", "")
	if err := handler.Delete(withID(c, "6")); !errors.Is(err, domain.ErrTodoNotFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
}
