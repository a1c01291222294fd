package parties

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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

type partyRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Type          string `json:"type" validate:"required,oneof=farmer trader exporter"`
	ContactNumber string `json:"contact_number" validate:"omitempty,max=32"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address" validate:"omitempty,max=255"`
	City          string `json:"city" validate:"omitempty,max=80"`
	State         string `json:"state" validate:"omitempty,max=80"`
}

func (req partyRequest) toParty() Party {
	return Party{
		Name:          req.Name,
		Type:          Type(req.Type),
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromQuery(r.URL.Query())
	parties, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list parties failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if parties == nil {
		parties = []Party{}
	}
	httpx.JSON(w, http.StatusOK, shared.Page[Party]{Items: parties, Total: total, Page: filters.Page, Limit: filters.Limit})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	party, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), req.toParty())
	if err != nil {
		h.logger.Warn("create party failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("party created", slog.Int64("party_id", created.ID), slog.String("type", string(created.Type)))
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), id, req.toParty())
	if err != nil {
		h.logger.Warn("update party failed", slog.Any("error", err), slog.Int64("party_id", id))
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
		h.logger.Warn("delete party failed", slog.Any("error", err), slog.Int64("party_id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (partyRequest, bool) {
	var req partyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return req, false
	}
	return req, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "party id must be a positive integer")
		return 0, false
	}
	return id, true
}
