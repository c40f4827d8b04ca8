package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository/repositorytest"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/validation"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	app *fiber.App
}

func newTestServer(t *testing.T, opts Options, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := repositorytest.NewStore()
	validator := validation.New()
	logger := zap.NewNop()
	metrics := observability.NewMetrics("desk_test")
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, metrics).RegisterHandlers()

	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "router-test-secret",
		AccessTokenTTLMinutes: 10,
		BcryptCost:            4,
	}, service.AuthDependencies{
		UserRepo:    store.Users,
		Revocations: auth.NewRedisRevocationStore(client),
		Validator:   validator,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets,
		UserRepo:    store.Users,
		HistoryRepo: store.History,
		Dispatcher:  dispatcher,
		Validator:   validator,
		Logger:      logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		TicketRepo:  store.Tickets,
		CommentRepo: store.Comments,
		Dispatcher:  dispatcher,
		Validator:   validator,
		Logger:      logger,
	})

	app := NewApp(opts, logger, RouteConfig{
		Health:         handlers.NewHealthHandler("support-desk", "test", deps),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Comments:       handlers.NewCommentsHandler(commentService),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
		Metrics:        metrics,
	})
	return &testServer{app: app}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) signup(t *testing.T, email, role string) string {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Test User", "email": email, "password": "123456", "role": role,
	})
	require.Equal(t, http.StatusCreated, status)

	status, env := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "123456",
	})
	require.Equal(t, http.StatusOK, status)
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func defaultOptions() Options {
	return Options{AppName: "support-desk-test", RequestTimeout: 5 * time.Second}
}

func TestRootBanner(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	status, env := srv.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"message":"Support Desk Lite API running"}`, string(env.Data))
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	customer := srv.signup(t, "customer@test.com", "")
	other := srv.signup(t, "other@test.com", "customer")
	agent := srv.signup(t, "agent@test.com", "agent")

	status, env := srv.do(t, http.MethodPost, "/api/tickets", "", map[string]any{"title": "nope"})
	require.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env = srv.do(t, http.MethodPost, "/api/tickets", customer, map[string]any{
		"title":       "Payment not processing",
		"description": "Checkout fails at the payment step",
		"priority":    "high",
		"tags":        []string{"payment", "payment", " billing "},
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[map[string]any](t, env.Data)
	assert.Equal(t, "open", created["status"])
	assert.Equal(t, []any{"payment", "billing"}, created["tags"])
	assert.Nil(t, created["assignedTo"])
	ticketPath := "/api/tickets/" + created["id"].(string)

	status, env = srv.do(t, http.MethodGet, ticketPath, customer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created["id"], decode[map[string]any](t, env.Data)["id"])

	status, env = srv.do(t, http.MethodGet, ticketPath, other, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ACCESS_DENIED", env.Error.Code)

	status, env = srv.do(t, http.MethodPatch, ticketPath+"/status", customer, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = srv.do(t, http.MethodPatch, ticketPath+"/status", agent, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)
	assert.Equal(t, map[string]any{"from": "open", "to": "resolved"}, env.Error.Details)

	for _, next := range []string{"in_progress", "resolved", "closed"} {
		status, env = srv.do(t, http.MethodPatch, ticketPath+"/status", agent, map[string]string{"status": next})
		require.Equal(t, http.StatusOK, status, next)
		assert.Equal(t, next, decode[map[string]any](t, env.Data)["status"])
	}

	status, env = srv.do(t, http.MethodPatch, ticketPath+"/status", agent, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	status, env = srv.do(t, http.MethodGet, ticketPath+"/history", agent, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 3)

	status, _ = srv.do(t, http.MethodGet, ticketPath+"/history", customer, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAssignOverHTTP(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	customer := srv.signup(t, "customer@test.com", "customer")
	admin := srv.signup(t, "admin@test.com", "admin")

	_, env := srv.do(t, http.MethodPost, "/api/tickets", customer, map[string]any{
		"title": "Cannot reset password", "description": "The reset email never arrives", "priority": "low",
	})
	ticketPath := "/api/tickets/" + decode[map[string]any](t, env.Data)["id"].(string)

	status, env := srv.do(t, http.MethodPatch, ticketPath+"/assign", admin, map[string]string{"assignedTo": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	_, env = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@test.com", "password": "123456"})
	adminID := decode[struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}](t, env.Data).User.ID

	status, env = srv.do(t, http.MethodPatch, ticketPath+"/assign", admin, map[string]string{"assignedTo": adminID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, adminID, decode[map[string]any](t, env.Data)["assignedTo"])
}

func TestCommentsOverHTTP(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	customer := srv.signup(t, "customer@test.com", "customer")
	agent := srv.signup(t, "agent@test.com", "agent")

	_, env := srv.do(t, http.MethodPost, "/api/tickets", customer, map[string]any{
		"title": "Payment not processing", "description": "Checkout fails at the payment step", "priority": "medium",
	})
	commentsPath := "/api/tickets/" + decode[map[string]any](t, env.Data)["id"].(string) + "/comments"

	status, env := srv.do(t, http.MethodPost, commentsPath, customer, map[string]string{"body": "secret", "type": "internal"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = srv.do(t, http.MethodPost, commentsPath, customer, map[string]string{"body": "Any news?"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "public", decode[map[string]any](t, env.Data)["type"])

	status, _ = srv.do(t, http.MethodPost, commentsPath, agent, map[string]string{"body": "Looking at logs", "type": "internal"})
	require.Equal(t, http.StatusCreated, status)

	type thread struct {
		Ticket   map[string]any   `json:"ticket"`
		Comments []map[string]any `json:"comments"`
	}
	status, env = srv.do(t, http.MethodGet, commentsPath, customer, nil)
	require.Equal(t, http.StatusOK, status)
	customerView := decode[thread](t, env.Data)
	require.Len(t, customerView.Comments, 1)
	assert.Equal(t, "Any news?", customerView.Comments[0]["body"])

	status, env = srv.do(t, http.MethodGet, commentsPath, agent, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[thread](t, env.Data).Comments, 2)
}

func TestListPaginationOverHTTP(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	customer := srv.signup(t, "customer@test.com", "customer")
	for i := 0; i < 3; i++ {
		status, _ := srv.do(t, http.MethodPost, "/api/tickets", customer, map[string]any{
			"title": "Printer is jammed", "description": "Paper stuck in tray two", "priority": "low",
		})
		require.Equal(t, http.StatusCreated, status)
	}

	type page struct {
		Tickets []map[string]any `json:"tickets"`
		Total   int              `json:"total"`
		Page    int              `json:"page"`
		Limit   int              `json:"limit"`
		Pages   int              `json:"pages"`
	}

	status, env := srv.do(t, http.MethodGet, "/api/tickets?limit=1000", customer, nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[page](t, env.Data)
	assert.Equal(t, 50, got.Limit)
	assert.Equal(t, 3, got.Total)
	assert.Len(t, got.Tickets, 3)

	status, env = srv.do(t, http.MethodGet, "/api/tickets?page=9&limit=2", customer, nil)
	require.Equal(t, http.StatusOK, status)
	got = decode[page](t, env.Data)
	assert.Empty(t, got.Tickets)
	assert.NotNil(t, got.Tickets)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.Pages)

	status, env = srv.do(t, http.MethodGet, "/api/tickets?status=done", customer, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestAuthErrorsOverHTTP(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	token := srv.signup(t, "customer@test.com", "customer")

	status, env := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Dup", "email": "CUSTOMER@test.com", "password": "123456",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, env = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "customer@test.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	status, _ = srv.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = srv.do(t, http.MethodGet, "/api/tickets", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestUnknownRouteRendersEnvelope(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	status, env := srv.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestRateLimitOverHTTP(t *testing.T) {
	opts := defaultOptions()
	opts.RateLimitMax = 2
	opts.RateLimitWindow = time.Minute
	srv := newTestServer(t, opts, nil)

	for i := 0; i < 2; i++ {
		status, _ := srv.do(t, http.MethodGet, "/api/tickets", "", nil)
		require.Equal(t, http.StatusUnauthorized, status)
	}
	status, env := srv.do(t, http.MethodGet, "/api/tickets", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	status, _ = srv.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestReadinessReportsDependencies(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), map[string]handlers.Pinger{
		"postgres": pingerFunc(func(context.Context) error { return nil }),
		"redis":    pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	status, env := srv.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", env.Error.Code)
	assert.Equal(t, "ok", env.Error.Details["postgres"])
	assert.Equal(t, "connection refused", env.Error.Details["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	srv.do(t, http.MethodGet, "/", "", nil)

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "desk_test_http_requests_total")
}

func TestPanicsAreRecovered(t *testing.T) {
	opts := defaultOptions()
	opts.Production = true
	srv := newTestServer(t, opts, nil)
	srv.app.Get("/boom", func(*fiber.Ctx) error { panic("kaboom") })
	srv.app.Get("/fail", func(*fiber.Ctx) error { return errors.New("db password leaked") })

	status, env := srv.do(t, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)

	status, env = srv.do(t, http.MethodGet, "/fail", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", env.Error.Message)
	assert.Nil(t, env.Error.Details)
}

func TestInternalCauseShownOutsideProduction(t *testing.T) {
	srv := newTestServer(t, defaultOptions(), nil)
	srv.app.Get("/fail", func(*fiber.Ctx) error { return errors.New("relation tickets does not exist") })

	status, env := srv.do(t, http.MethodGet, "/fail", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "relation tickets does not exist", env.Error.Details["cause"])
}
