package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/cropledger/cropledger/internal/masterdata/shared"
	internalShared "github.com/cropledger/cropledger/internal/shared"
)

type memoryRepo struct {
	states []State
	cities []City
}

func (r *memoryRepo) ListStates(ctx context.Context) ([]State, error) {
	return r.states, nil
}

func (r *memoryRepo) CreateState(ctx context.Context, state State) (State, error) {
	for _, s := range r.states {
		if s.Name == state.Name || s.Code == state.Code {
			return State{}, fmt.Errorf("state %q: %w", state.Name, internalShared.ErrDuplicate)
		}
	}
	state.ID = int64(len(r.states) + 1)
	r.states = append(r.states, state)
	return state, nil
}

func (r *memoryRepo) ListCities(ctx context.Context, stateID int64) ([]City, error) {
	var out []City
	for _, c := range r.cities {
		if stateID == 0 || c.StateID == stateID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateCity(ctx context.Context, city City) (City, error) {
	known := false
	for _, s := range r.states {
		known = known || s.ID == city.StateID
	}
	if !known {
		return City{}, fmt.Errorf("state %d: %w", city.StateID, ErrUnknownState)
	}
	city.ID = int64(len(r.cities) + 1)
	r.cities = append(r.cities, city)
	return city, nil
}

func TestCreateStateNormalises(t *testing.T) {
	svc := NewService(&memoryRepo{})
	ctx := context.Background()

	state, err := svc.CreateState(ctx, State{Name: " Gujarat ", Code: "gj"})
	require.NoError(t, err)
	require.Equal(t, "Gujarat", state.Name)
	require.Equal(t, "GJ", state.Code)

	_, err = svc.CreateState(ctx, State{Name: "Gujarat", Code: "GU"})
	require.ErrorIs(t, err, internalShared.ErrDuplicate)

	_, err = svc.CreateState(ctx, State{Name: "Punjab"})
	require.ErrorIs(t, err, shared.ErrRequiredField)
}

func TestCitiesFilterByState(t *testing.T) {
	svc := NewService(&memoryRepo{})
	ctx := context.Background()

	gj, err := svc.CreateState(ctx, State{Name: "Gujarat", Code: "GJ"})
	require.NoError(t, err)
	mp, err := svc.CreateState(ctx, State{Name: "Madhya Pradesh", Code: "MP"})
	require.NoError(t, err)
	for _, c := range []City{{Name: "Rajkot", StateID: gj.ID}, {Name: "Mundra", StateID: gj.ID}, {Name: "Indore", StateID: mp.ID}} {
		_, err := svc.CreateCity(ctx, c)
		require.NoError(t, err)
	}

	all, err := svc.ListCities(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	gujarat, err := svc.ListCities(ctx, gj.ID)
	require.NoError(t, err)
	require.Len(t, gujarat, 2)

	_, err = svc.CreateCity(ctx, City{Name: "Pune", StateID: 9})
	require.ErrorIs(t, err, ErrUnknownState)
	require.ErrorIs(t, err, internalShared.ErrValidation)

	_, err = svc.CreateCity(ctx, City{Name: " ", StateID: gj.ID})
	require.ErrorIs(t, err, shared.ErrRequiredField)
}

func TestLocationHandlers(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(&memoryRepo{}))
	router := chi.NewRouter()
	router.Route("/masterdata/states", h.MountStateRoutes)
	router.Route("/masterdata/cities", h.MountCityRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/masterdata/states", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/masterdata/states", strings.NewReader(`{"name":"Gujarat","code":"gj"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var state State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Equal(t, "GJ", state.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/masterdata/cities", strings.NewReader(`{"name":"Rajkot","state_id":1}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/masterdata/cities", strings.NewReader(`{"name":"Pune","state_id":4}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/masterdata/cities?state_id=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cities []City
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cities))
	require.Len(t, cities, 1)
	require.Equal(t, "Rajkot", cities[0].Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/masterdata/cities?state_id=x", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
