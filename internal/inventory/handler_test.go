package inventory

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (http.Handler, *memoryRepo) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{})
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/inventory", h.MountRoutes)
	return r, repo
}

func TestHandlerManualMovement(t *testing.T) {
	router, _ := newTestRouter()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/inventory/movements",
		strings.NewReader(`{"crop_id":4,"quantity":"12","unit_cost":"55.5"}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var res MovementResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, OutcomeCreated, res.Outcome)
	requireDecimal(t, "666", res.Position.TotalValue)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/inventory/movements",
		strings.NewReader(`{"crop_id":4,"quantity":"-20"}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventory/positions?crop_id=4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var positions []Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	requireDecimal(t, "12", positions[0].CurrentStock)
}

func TestHandlerValidation(t *testing.T) {
	router, _ := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventory/movements", strings.NewReader(`{"quantity":"1"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "crop_id")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventory/movements", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventory/movements", strings.NewReader(`{"crop_id":1,"quantity":"0"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
