package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/todo-system/internal/core/domain"
	"github.com/taskhub/todo-system/internal/core/ports"
)

// Auth verifies the bearer token and attaches the caller's identity to the
// request context. A missing credential is domain.ErrUnauthenticated (401);
// one that does not verify is domain.ErrForbidden (403).
func Auth(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return domain.ErrUnauthenticated
			}

			identity, err := tokens.Verify(token)
			if err != nil {
				return domain.ErrForbidden
			}

			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithIdentity(req.Context(), *identity)))
			return next(c)
		}
	}
}

// bearerToken returns the credential after the scheme, or "" when there is none.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
