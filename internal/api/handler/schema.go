package handler

import "time"

// errorResponse is the error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type credentialsRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// --- Todos ---

type createTodoRequest struct {
	Title string `json:"title" validate:"notblank"`
}

// updateTodoRequest distinguishes an absent field (nil) from a zero value.
type updateTodoRequest struct {
	Title     *string `json:"title"     validate:"omitempty,notblank"`
	Completed *bool   `json:"completed"`
}

type todoResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Health ---

type livenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}
