package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/platform/httpx"
)

// Handler exposes ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries", h.handleEntries)
	r.Post("/entries", h.handlePostEntry)
	r.Get("/parties/{id}/balance", h.handleBalance)
	r.Post("/parties/{id}/recompute", h.handleRecompute)
}

type postEntryRequest struct {
	PartyID         int64           `json:"party_id" validate:"required,gt=0"`
	TransactionType string          `json:"transaction_type" validate:"required,oneof=purchase sale expense payment"`
	TransactionID   int64           `json:"transaction_id" validate:"gte=0"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	Description     string          `json:"description" validate:"max=500"`
	TransactionDate string          `json:"transaction_date" validate:"omitempty,datetime=2006-01-02"`
}

type balanceResponse struct {
	PartyID int64           `json:"party_id"`
	Balance decimal.Decimal `json:"balance"`
}

// NextPageHeader carries the Before cursor for the next page of entries.
const NextPageHeader = "X-Next-Before"

func (h *Handler) handleEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filter EntryFilter
	fields := map[string]string{}
	if raw := query.Get("party_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fields["party_id"] = "invalid"
		}
		filter.PartyID = id
	}
	if raw := query.Get("before"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fields["before"] = "invalid"
		}
		filter.Before = id
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > MaxPageSize {
			fields["limit"] = "must be between 1 and " + strconv.Itoa(MaxPageSize)
		}
		filter.Limit = limit
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}
	entries, err := h.service.EntriesPage(r.Context(), filter)
	if err != nil {
		h.logger.Error("list ledger entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	if filter.Limit > 0 && len(entries) == filter.Limit {
		w.Header().Set(NextPageHeader, strconv.FormatInt(entries[len(entries)-1].ID, 10))
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handlePostEntry(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return
	}
	var date time.Time
	if req.TransactionDate != "" {
		date, _ = time.Parse("2006-01-02", req.TransactionDate)
	}
	entry, err := h.service.PostEntry(r.Context(), PostingInput{
		PartyID:         req.PartyID,
		TransactionType: TransactionType(req.TransactionType),
		TransactionID:   req.TransactionID,
		Debit:           req.Debit,
		Credit:          req.Credit,
		Description:     req.Description,
		TransactionDate: date,
	})
	if err != nil {
		h.logger.Warn("post ledger entry", slog.Any("error", err), slog.Int64("party_id", req.PartyID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := partyIDParam(w, r)
	if !ok {
		return
	}
	balance, err := h.service.PartyBalance(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{PartyID: id, Balance: balance})
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	id, ok := partyIDParam(w, r)
	if !ok {
		return
	}
	report, err := h.service.RecomputeBalances(r.Context(), id)
	if err != nil {
		h.logger.Error("recompute balances", slog.Any("error", err), slog.Int64("party_id", id))
		httpx.RespondError(w, err)
		return
	}
	if report.Repaired() {
		h.logger.Warn("ledger drift repaired",
			slog.Int64("party_id", id),
			slog.String("drift", report.Drift().String()),
			slog.Int("restated", report.Restated))
	}
	httpx.JSON(w, http.StatusOK, report)
}

func partyIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.ValidationProblem(w, map[string]string{"id": "invalid"})
		return 0, false
	}
	return id, true
}
