package locations

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cropledger/cropledger/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator()}
}

func (h *Handler) MountStateRoutes(r chi.Router) {
	r.Get("/", h.ListStates)
	r.Post("/", h.CreateState)
}

func (h *Handler) MountCityRoutes(r chi.Router) {
	r.Get("/", h.ListCities)
	r.Post("/", h.CreateCity)
}

type stateRequest struct {
	Name string `json:"name" validate:"required,max=80"`
	Code string `json:"code" validate:"required,max=10"`
}

type cityRequest struct {
	Name    string `json:"name" validate:"required,max=80"`
	StateID int64  `json:"state_id" validate:"required,gt=0"`
}

func (h *Handler) ListStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.service.ListStates(r.Context())
	if err != nil {
		h.logger.Error("list states failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if states == nil {
		states = []State{}
	}
	httpx.JSON(w, http.StatusOK, states)
}

func (h *Handler) CreateState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateState(r.Context(), State{Name: req.Name, Code: req.Code})
	if err != nil {
		h.logger.Warn("create state failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) ListCities(w http.ResponseWriter, r *http.Request) {
	var stateID int64
	if raw := r.URL.Query().Get("state_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.ValidationProblem(w, map[string]string{"state_id": "invalid"})
			return
		}
		stateID = id
	}
	cities, err := h.service.ListCities(r.Context(), stateID)
	if err != nil {
		h.logger.Error("list cities failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if cities == nil {
		cities = []City{}
	}
	httpx.JSON(w, http.StatusOK, cities)
}

func (h *Handler) CreateCity(w http.ResponseWriter, r *http.Request) {
	var req cityRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateCity(r.Context(), City{Name: req.Name, StateID: req.StateID})
	if err != nil {
		h.logger.Warn("create city failed", slog.Any("error", err), slog.Int64("state_id", req.StateID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return false
	}
	return true
}
