package trading

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cropledger/cropledger/internal/inventory"
)

func newTestRouter(t *testing.T) (*fixture, http.Handler) {
	f := newFixture(t, inventory.ServiceConfig{})
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return f, r
}

func post(router http.Handler, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerPurchaseThenSale(t *testing.T) {
	f, router := newTestRouter(t)

	rec := post(router, "/purchases",
		`{"party_id":1,"crop_id":10,"quantity":"100","rate":"20","purchase_date":"2024-03-01","expenses":[{"type":"transport","amount":"50"}]}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var purchase purchaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &purchase))
	require.True(t, day(1).Equal(purchase.Purchase.PurchaseDate))
	require.Len(t, purchase.Result.Entries, 2)

	rec = post(router, "/sales", `{"party_id":2,"crop_id":10,"quantity":"40","rate":"30"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale saleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	requireDecimal(t, "60", sale.Result.Movement.Position.CurrentStock)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases?party_id=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var purchases []Purchase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &purchases))
	require.Len(t, purchases, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/sales/"+itoa(sale.Sale.ID)+"/payment-status",
		strings.NewReader(`{"status":"partial"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, err := f.store.GetSale(t.Context(), sale.Sale.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, stored.PaymentStatus)
}

func TestHandlerOversellIsConflict(t *testing.T) {
	_, router := newTestRouter(t)
	rec := post(router, "/sales", `{"party_id":2,"crop_id":10,"quantity":"5","rate":"30"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandlerIdempotencyHeader(t *testing.T) {
	_, router := newTestRouter(t)
	body := `{"type":"storage","amount":"10"}`
	key := map[string]string{IdempotencyHeader: uuid.NewString()}

	require.Equal(t, http.StatusCreated, post(router, "/expenses", body, key).Code)
	require.Equal(t, http.StatusConflict, post(router, "/expenses", body, key).Code)
	require.Equal(t, http.StatusBadRequest,
		post(router, "/expenses", body, map[string]string{IdempotencyHeader: "abc"}).Code)
}

func TestHandlerValidation(t *testing.T) {
	_, router := newTestRouter(t)
	cases := map[string]string{
		"/purchases": `{"party_id":0,"crop_id":10,"quantity":"1","rate":"1"}`,
		"/sales":     `{"party_id":2,"crop_id":10,"quantity":"1","rate":"1","sale_date":"03/01/2024"}`,
		"/expenses":  `{"type":"fuel","amount":"1"}`,
	}
	for path, body := range cases {
		rec := post(router, path, body, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	require.Equal(t, http.StatusBadRequest, post(router, "/sales", `{`, nil).Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases/77", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
