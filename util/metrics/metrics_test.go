package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector_CounterAndHistogram(t *testing.T) {
	c := New()
	c.IncrementCounter("rental_operations_total", map[string]string{"operation": "checkout", "outcome": "success"})
	c.IncrementCounter("rental_operations_total", map[string]string{"operation": "checkout", "outcome": "success"})
	c.IncrementCounter("rental_operations_total", map[string]string{"operation": "return", "outcome": "not_found"})
	c.RecordDuration("rental_operation_duration_seconds", 20*time.Millisecond, map[string]string{"operation": "checkout"})

	require.Equal(t, 2.0, testutil.ToFloat64(c.counters["rental_operations_total"].WithLabelValues("checkout", "success")))
	require.Equal(t, 1, testutil.CollectAndCount(c.histograms["rental_operation_duration_seconds"]))

	// mismatched label names are dropped instead of panicking
	c.IncrementCounter("rental_operations_total", map[string]string{"operation": "checkout"})
}

func TestHandlerAndMiddleware(t *testing.T) {
	c := New()
	e := echo.New()
	e.Use(c.Middleware())
	e.GET("/ping", func(ctx echo.Context) error { return ctx.String(http.StatusOK, "pong") })
	e.GET("/metrics", c.Handler())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `http_requests_total{method="GET",path="/ping",status="200"} 1`), body)
}
