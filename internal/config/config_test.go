package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/desk")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5001", cfg.App.Addr())
	assert.Equal(t, 10, cfg.Tickets.DefaultPageSize)
	assert.Equal(t, 50, cfg.Tickets.MaxPageSize)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.False(t, cfg.App.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/desk")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("TICKETS_MAX_PAGE_SIZE", "25")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 25, cfg.Tickets.MaxPageSize)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/desk")
	t.Setenv("REDIS_DB", "x")

	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_DB")
}

func TestValidateProductionSecret(t *testing.T) {
	cfg := &Config{
		App:      AppConfig{Env: EnvProduction},
		Postgres: PostgresConfig{DSN: "postgres://db"},
		Auth:     AuthConfig{JWTSecret: defaultJWTSecret},
		Tickets:  TicketsConfig{DefaultPageSize: 10, MaxPageSize: 50},
	}
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidatePageSizes(t *testing.T) {
	cfg := &Config{
		Postgres: PostgresConfig{DSN: "postgres://db"},
		Auth:     AuthConfig{JWTSecret: "s"},
		Tickets:  TicketsConfig{DefaultPageSize: 60, MaxPageSize: 50},
	}
	assert.Error(t, cfg.Validate())

	cfg.Tickets.DefaultPageSize = 0
	assert.Error(t, cfg.Validate())
}

func TestRequestTimeoutDisabled(t *testing.T) {
	assert.Zero(t, AppConfig{RequestTimeoutSeconds: 0}.RequestTimeout())
}
