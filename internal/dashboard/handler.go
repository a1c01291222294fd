package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cropledger/cropledger/internal/platform/httpx"
)

// Handler exposes dashboard read models.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs dashboard handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/metrics", h.handleMetrics)
	r.Get("/crop-distribution", h.handleCropDistribution)
	r.Get("/sales-trend", h.handleSalesTrend)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Metrics(r.Context())
	if err != nil {
		h.logger.Error("dashboard metrics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, metrics)
}

func (h *Handler) handleCropDistribution(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.CropDistribution(r.Context())
	if err != nil {
		h.logger.Error("dashboard crop distribution", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleSalesTrend(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.SalesTrend(r.Context(), Period(r.URL.Query().Get("period")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, points)
}
