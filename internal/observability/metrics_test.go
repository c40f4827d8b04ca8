package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("desk_test")

	m.RecordRequest("/api/tickets", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 200, 5*time.Millisecond)
	m.RecordError("/api/tickets/:id", "GET", "ACCESS_DENIED")
	m.RecordEvent("ticket_created")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/api/tickets", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("/api/tickets/:id", "GET", "ACCESS_DENIED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.domainEvents.WithLabelValues("ticket_created")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordEvent("x")
	})
}

func TestRequestLoggerRecordsRoute(t *testing.T) {
	m := NewMetrics("desk_test")
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/tickets/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tickets/42", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/tickets/:id", "GET", "204")))
}
