package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/platform/httpx"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/positions", h.handlePositions)
	r.Get("/movements", h.handleMovements)
	r.Post("/movements", h.handleManualMovement)
}

type movementRequest struct {
	CropID       int64           `json:"crop_id" validate:"required,gt=0"`
	QualityGrade string          `json:"quality_grade" validate:"omitempty,max=16"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Code         string          `json:"code" validate:"omitempty,max=64"`
	Note         string          `json:"note" validate:"omitempty,max=255"`
}

func (h *Handler) handlePositions(w http.ResponseWriter, r *http.Request) {
	cropID, ok := parseCropID(w, r, false)
	if !ok {
		return
	}
	positions, err := h.service.Positions(r.Context(), cropID, r.URL.Query().Get("grade"))
	if err != nil {
		h.logger.Error("list positions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if positions == nil {
		positions = []Position{}
	}
	httpx.JSON(w, http.StatusOK, positions)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	cropID, ok := parseCropID(w, r, true)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), MovementFilter{
		CropID: cropID,
		Grade:  r.URL.Query().Get("grade"),
		Limit:  limit,
	})
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err), slog.Int64("crop_id", cropID))
		httpx.RespondError(w, err)
		return
	}
	if movements == nil {
		movements = []StockMovement{}
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) handleManualMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return
	}
	result, err := h.service.ApplyMovement(r.Context(), Movement{
		Code:          req.Code,
		CropID:        req.CropID,
		Grade:         req.QualityGrade,
		QuantityDelta: req.Quantity,
		UnitCost:      req.UnitCost,
		RefType:       "manual",
		Note:          req.Note,
	}, 0)
	if err != nil {
		h.logger.Warn("manual movement rejected", slog.Any("error", err), slog.Int64("crop_id", req.CropID))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("manual movement applied",
		slog.Int64("crop_id", result.Position.CropID),
		slog.String("grade", result.Position.Grade),
		slog.String("outcome", string(result.Outcome)))
	httpx.JSON(w, http.StatusCreated, result)
}

func parseCropID(w http.ResponseWriter, r *http.Request, required bool) (int64, bool) {
	raw := r.URL.Query().Get("crop_id")
	if raw == "" {
		if required {
			httpx.ValidationProblem(w, map[string]string{"crop_id": "required"})
			return 0, false
		}
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.ValidationProblem(w, map[string]string{"crop_id": "invalid"})
		return 0, false
	}
	return id, true
}
