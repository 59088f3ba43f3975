package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/todo-system/internal/api"
	"github.com/taskhub/todo-system/internal/api/handler"
	"github.com/taskhub/todo-system/internal/core/service"
	"github.com/taskhub/todo-system/internal/infrastructure/db/sqldb"
)

const testSecret = "test-secret"

type todoBody struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

type errBody struct {
	Error string `json:"error"`
}

// newTestServer runs the full router over a fresh SQLite database.
func newTestServer(t *testing.T) *resty.Client {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "todo.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sqldb.Open(ctx, sqldb.Config{Driver: sqldb.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	tokens := service.NewTokenService(testSecret, 0)
	auth, err := service.NewAuthService(sqldb.NewUserRepository(db), tokens, log, service.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	e := api.NewRouter(api.Deps{
		Logger: log,
		Auth:   auth,
		Todos:  service.NewTodoService(sqldb.NewTodoRepository(db), log),
		Tokens: tokens,
		Checks: map[string]handler.Check{"database": db.PingContext},
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return resty.New().SetBaseURL(srv.URL)
}

func register(t *testing.T, c *resty.Client, username, password string) {
	t.Helper()
	resp, err := c.R().
		SetBody(map[string]string{"username": username, "password": password}).
		Post("/api/auth/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())
}

func login(t *testing.T, c *resty.Client, username, password string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	resp, err := c.R().
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post("/api/auth/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	require.NotEmpty(t, out.Token)
	return out.Token
}

func createTodo(t *testing.T, c *resty.Client, token, title string) todoBody {
	t.Helper()
	var out todoBody
	resp, err := c.R().
		SetAuthToken(token).
		SetBody(map[string]string{"title": title}).
		SetResult(&out).
		Post("/api/todos")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())
	return out
}

func listTodos(t *testing.T, c *resty.Client, token string) []todoBody {
	t.Helper()
	var out []todoBody
	resp, err := c.R().SetAuthToken(token).SetResult(&out).Get("/api/todos")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	return out
}

func TestRouter_RegisterLoginTokenCarriesUser(t *testing.T) {
	c := newTestServer(t)
	register(t, c, "alice", "pw1")
	token := login(t, c, "alice", "pw1")

	id, err := service.NewTokenService(testSecret, 0).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.Positive(t, id.ID)
}

func TestRouter_RegisterErrors(t *testing.T) {
	c := newTestServer(t)
	register(t, c, "alice", "pw1")

	var e errBody
	resp, err := c.R().SetBody(map[string]string{"username": "alice", "password": "other"}).SetError(&e).Post("/api/auth/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "Username already exists", e.Error)

	resp, err = c.R().SetBody(map[string]string{"username": "bob"}).SetError(&e).Post("/api/auth/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "Username and password required", e.Error)

	assert.NotContains(t, resp.String(), "password_hash")
}

func TestRouter_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	c := newTestServer(t)
	register(t, c, "alice", "pw1")

	wrongPassword, err := c.R().SetBody(map[string]string{"username": "alice", "password": "nope"}).Post("/api/auth/login")
	require.NoError(t, err)
	unknownUser, err := c.R().SetBody(map[string]string{"username": "ghost", "password": "nope"}).Post("/api/auth/login")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, wrongPassword.StatusCode())
	assert.Equal(t, wrongPassword.StatusCode(), unknownUser.StatusCode())
	assert.Equal(t, wrongPassword.String(), unknownUser.String())
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, wrongPassword.String())
}

func TestRouter_CreateAndListNewestFirst(t *testing.T) {
	c := newTestServer(t)
	register(t, c, "alice", "pw1")
	token := login(t, c, "alice", "pw1")

	assert.Empty(t, listTodos(t, c, token))

	createTodo(t, c, token, "Older")
	milk := createTodo(t, c, token, "Buy milk")
	assert.Positive(t, milk.ID)
	assert.Equal(t, "Buy milk", milk.Title)
	assert.False(t, milk.Completed)

	todos := listTodos(t, c, token)
	require.Len(t, todos, 2)
	assert.Equal(t, milk.ID, todos[0].ID)
	assert.Equal(t, "Older", todos[1].Title)
}

func TestRouter_PartialUpdateAndRoundTrip(t *testing.T) {
	c := newTestServer(t)
	register(t, c, "alice", "pw1")
	token := login(t, c, "alice", "pw1")
	todo := createTodo(t, c, token, "Buy milk")
	path := "/api/todos/" + itoa(todo.ID)

	resp, err := c.R().SetAuthToken(token).SetBody(map[string]bool{"completed": true}).Put(path)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"message":"Todo updated"}`, resp.String())

	todos := listTodos(t, c, token)
	require.Len(t, todos, 1)
	assert.Equal(t, "Buy milk", todos[0].Title)
	assert.True(t, todos[0].Completed)

	resp, err = c.R().SetAuthToken(token).SetBody(map[string]any{}).Put(path)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.JSONEq(t, `{"error":"No updates provided"}`, resp.String())

	resp, err = c.R().SetAuthToken(token).Delete(path)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"message":"Todo deleted"}`, resp.String())
	assert.Empty(t, listTodos(t, c, token))

	resp, err = c.R().SetAuthToken(token).Delete(path)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestRouter_OwnerIsolation(t *testing.T) {
	c := newTestServer(t)
	register(t, c, "alice", "pw1")
	register(t, c, "bob", "pw2")
	alice := login(t, c, "alice", "pw1")
	bob := login(t, c, "bob", "pw2")

	todo := createTodo(t, c, alice, "secret plan")
	path := "/api/todos/" + itoa(todo.ID)

	assert.Empty(t, listTodos(t, c, bob))

	resp, err := c.R().SetAuthToken(bob).SetBody(map[string]string{"title": "hijacked"}).Put(path)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.JSONEq(t, `{"error":"Todo not found"}`, resp.String())

	resp, err = c.R().SetAuthToken(bob).Delete(path)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	todos := listTodos(t, c, alice)
	require.Len(t, todos, 1)
	assert.Equal(t, "secret plan", todos[0].Title)
}

func TestRouter_AuthenticatorStatusCodes(t *testing.T) {
	c := newTestServer(t)

	resp, err := c.R().Get("/api/todos")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.JSONEq(t, `{"error":"Access token required"}`, resp.String())

	resp, err = c.R().SetAuthToken("garbage").Get("/api/todos")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	assert.JSONEq(t, `{"error":"Invalid token"}`, resp.String())

	forged, err := service.NewTokenService("other-secret", 0).Issue(1, "alice")
	require.NoError(t, err)
	resp, err = c.R().SetAuthToken(forged).Post("/api/todos")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func TestRouter_NonNumericIDIsNotFound(t *testing.T) {
	c := newTestServer(t)
	register(t, c, "alice", "pw1")
	token := login(t, c, "alice", "pw1")

	resp, err := c.R().SetAuthToken(token).Delete("/api/todos/abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	c := newTestServer(t)

	var health struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	resp, err := c.R().SetResult(&health).Get("/api/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "OK", health.Status)
	_, err = time.Parse(time.RFC3339, health.Timestamp)
	assert.NoError(t, err)

	resp, err = c.R().Get("/api/health/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), `"database":{"status":"ok"}`)

	resp, err = c.R().Get("/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), "todo_http_requests_total")

	resp, err = c.R().Get("/api/health")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "application/json"))
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestRouter_MetricsRecordClientStatus(t *testing.T) {
	c := newTestServer(t)

	_, err := c.R().Get("/api/todos")
	require.NoError(t, err)
	_, err = c.R().SetAuthToken("garbage").Get("/api/todos")
	require.NoError(t, err)
	_, err = c.R().SetBody(map[string]string{"username": "ghost"}).Post("/api/auth/login")
	require.NoError(t, err)

	resp, err := c.R().Get("/metrics")
	require.NoError(t, err)
	body := resp.String()

	assert.Regexp(t, `todo_http_requests_total\{code="401",[^}]*method="GET",url="/api/todos"\} 1`, body)
	assert.Regexp(t, `todo_http_requests_total\{code="403",[^}]*method="GET",url="/api/todos"\} 1`, body)
	assert.Regexp(t, `todo_http_requests_total\{code="400",[^}]*method="POST",url="/api/auth/login"\} 1`, body)
	assert.NotContains(t, body, `todo_http_requests_total{code="500"`)
}
