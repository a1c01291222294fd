package parties

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

	"github.com/cropledger/cropledger/internal/masterdata/shared"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo))
	r := chi.NewRouter()
	r.Route("/masterdata/parties", h.MountRoutes)
	return r
}

func TestHandlerCRUD(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/masterdata/parties",
		strings.NewReader(`{"name":"Sita Devi","type":"farmer","email":"sita@example.com"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Party
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/masterdata/parties?type=farmer", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page shared.Page[Party]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/masterdata/parties/1",
		strings.NewReader(`{"name":"Sita Devi","type":"trader"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, TypeTrader, repo.parties[1].Type)

	repo.ledger[1] = true
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/masterdata/parties/1", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/masterdata/parties/9", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRejectsInvalidBody(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/masterdata/parties",
		strings.NewReader(`{"name":"X","type":"bank"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"type"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/masterdata/parties",
		strings.NewReader(`{"name":"X","type":"farmer","balance":"10"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
