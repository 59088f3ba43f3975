package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/todo-system/internal/core/domain"
)

// ctxIdentity returns the caller attached by the Auth middleware. A handler
// mounted without the middleware fails closed with ErrUnauthenticated.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}

// todoID parses the :id path parameter. Anything that is not a positive
// integer cannot name a todo, so it is reported as not found.
func todoID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrTodoNotFound
	}
	return id, nil
}
