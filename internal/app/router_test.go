package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cropledger/cropledger/internal/dashboard"
	"github.com/cropledger/cropledger/internal/observability"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testRouter(params RouterParams) http.Handler {
	params.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if params.Config == nil {
		params.Config = &Config{RateLimitPerMinute: 1000}
	}
	return NewRouter(params)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(RouterParams{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	rec = httptest.NewRecorder()
	testRouter(RouterParams{Database: stubPinger{err: errors.New("down")}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteIsProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(RouterParams{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRejectsNonJSONBody(t *testing.T) {
	svc := dashboard.NewService(nil, nil, dashboard.Config{}, nil)
	router := testRouter(RouterParams{DashboardHandler: dashboard.NewHandler(slog.Default(), svc)})

	req := httptest.NewRequest(http.MethodPost, "/dashboard/metrics", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestMetricsEndpointAndMiddleware(t *testing.T) {
	metrics := observability.NewMetrics()
	router := testRouter(RouterParams{Metrics: metrics})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `cropledger_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRateLimit(t *testing.T) {
	router := testRouter(RouterParams{Config: &Config{RateLimitPerMinute: 2}})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
