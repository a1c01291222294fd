package crops

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/masterdata/shared"
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

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type cropRequest struct {
	Name      string              `json:"name" validate:"required,max=80"`
	Unit      string              `json:"unit" validate:"omitempty,oneof=quintal kg ton"`
	BasePrice decimal.NullDecimal `json:"base_price"`
}

type cropUpdateRequest struct {
	Name      *string              `json:"name" validate:"omitempty,min=1,max=80"`
	Unit      *string              `json:"unit" validate:"omitempty,oneof=quintal kg ton"`
	BasePrice *decimal.NullDecimal `json:"base_price"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromQuery(r.URL.Query())
	crops, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list crops failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if crops == nil {
		crops = []Crop{}
	}
	httpx.JSON(w, http.StatusOK, shared.Page[Crop]{Items: crops, Total: total, Page: filters.Page, Limit: filters.Limit})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	crop, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, crop)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req cropRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return
	}
	created, err := h.service.Create(r.Context(), Crop{Name: req.Name, Unit: Unit(req.Unit), BasePrice: req.BasePrice})
	if err != nil {
		h.logger.Warn("create crop failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req cropUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return
	}
	upd := Update{Name: req.Name, BasePrice: req.BasePrice}
	if req.Unit != nil {
		unit := Unit(*req.Unit)
		upd.Unit = &unit
	}
	updated, err := h.service.Update(r.Context(), id, upd)
	if err != nil {
		h.logger.Warn("update crop failed", slog.Any("error", err), slog.Int64("crop_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Warn("delete crop failed", slog.Any("error", err), slog.Int64("crop_id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "crop id must be a positive integer")
		return 0, false
	}
	return id, true
}
