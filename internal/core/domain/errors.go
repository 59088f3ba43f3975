package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts")

	ErrInvalidToken    = errors.New("invalid token")
	ErrUnauthenticated = errors.New("access token required")
	ErrForbidden       = errors.New("access forbidden")

	ErrTodoNotFound = errors.New("todo not found")

	// ErrStorage marks an unexpected failure of the underlying store.
	ErrStorage = errors.New("storage error")
)

// ValidationError reports missing or malformed input. Its message is safe to
// return to the client as-is.
type ValidationError struct {
	Msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

func (e *ValidationError) Error() string { return e.Msg }
