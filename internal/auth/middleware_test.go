package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/policy"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

type stubAuthenticator struct {
	principals map[string]*Principal
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*Principal, error) {
	if p, ok := s.principals[token]; ok {
		return p, nil
	}
	return nil, apperrors.NewUnauthorized("invalid token")
}

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.SendStatus(fe.Code)
			}
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	mw := NewAuthMiddleware(stubAuthenticator{principals: map[string]*Principal{
		"customer-token": {User: &domain.User{ID: "c1", Role: domain.RoleCustomer, IsActive: true}},
		"agent-token":    {User: &domain.User{ID: "a1", Role: domain.RoleAgent, IsActive: true}},
	}})

	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		caller, err := CallerFromContext(c)
		if err != nil {
			return err
		}
		return c.SendString(caller.ID + ":" + string(caller.Role))
	})
	app.Patch("/status", mw.Handle, Require(policy.CapTicketChangeStatus), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	app.Get("/unguarded", Require(policy.CapTicketRead), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name   string
		method string
		path   string
		header string
		status int
	}{
		{"missing header", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/me", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", http.MethodGet, "/me", "Bearer ", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/me", "Bearer nope", http.StatusUnauthorized},
		{"valid token", http.MethodGet, "/me", "Bearer customer-token", http.StatusOK},
		{"scheme is case-insensitive", http.MethodGet, "/me", "bearer agent-token", http.StatusOK},
		{"customer lacks capability", http.MethodPatch, "/status", "Bearer customer-token", http.StatusForbidden},
		{"agent holds capability", http.MethodPatch, "/status", "Bearer agent-token", http.StatusOK},
		{"gate without principal", http.MethodGet, "/unguarded", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
