package trading

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

// IdempotencyHeader carries the client supplied request key.
const IdempotencyHeader = "Idempotency-Key"

const dateLayout = "2006-01-02"

// Handler wires HTTP endpoints for trading module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs trading handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator()}
}

// MountRoutes registers trading routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchases", func(r chi.Router) {
		r.Get("/", h.handleListPurchases)
		r.Post("/", h.handleRecordPurchase)
		r.Get("/{id}", h.handleGetPurchase)
	})
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.handleListSales)
		r.Post("/", h.handleRecordSale)
		r.Get("/{id}", h.handleGetSale)
		r.Put("/{id}/payment-status", h.handlePaymentStatus)
	})
	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.handleListExpenses)
		r.Post("/", h.handleRecordExpense)
	})
}

type expenseLineRequest struct {
	Type   string          `json:"type" validate:"required,oneof=transport storage labor other"`
	Amount decimal.Decimal `json:"amount"`
}

type purchaseRequest struct {
	PartyID         int64                `json:"party_id" validate:"required,gt=0"`
	CropID          int64                `json:"crop_id" validate:"required,gt=0"`
	Quantity        decimal.Decimal      `json:"quantity"`
	Rate            decimal.Decimal      `json:"rate"`
	TotalAmount     decimal.NullDecimal  `json:"total_amount"`
	ExpenseAmount   decimal.NullDecimal  `json:"expense_amount"`
	FinalAmount     decimal.NullDecimal  `json:"final_amount"`
	QualityGrade    string               `json:"quality_grade" validate:"omitempty,max=16"`
	MoistureContent decimal.NullDecimal  `json:"moisture_content"`
	PurchaseDate    string               `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	Expenses        []expenseLineRequest `json:"expenses" validate:"omitempty,dive"`
}

type saleRequest struct {
	PartyID       int64               `json:"party_id" validate:"required,gt=0"`
	CropID        int64               `json:"crop_id" validate:"required,gt=0"`
	Quantity      decimal.Decimal     `json:"quantity"`
	Rate          decimal.Decimal     `json:"rate"`
	TotalAmount   decimal.NullDecimal `json:"total_amount"`
	QualityGrade  string              `json:"quality_grade" validate:"omitempty,max=16"`
	SaleDate      string              `json:"sale_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentStatus string              `json:"payment_status" validate:"omitempty,oneof=pending partial paid"`
}

type expenseRequest struct {
	Type        string          `json:"type" validate:"required,oneof=transport storage labor other"`
	Description string          `json:"description" validate:"max=255"`
	Amount      decimal.Decimal `json:"amount"`
	PurchaseID  int64           `json:"purchase_id" validate:"gte=0"`
	SaleID      int64           `json:"sale_id" validate:"gte=0"`
	ExpenseDate string          `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
}

type paymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending partial paid"`
}

type purchaseResponse struct {
	Purchase Purchase     `json:"purchase"`
	Result   RecordResult `json:"result"`
}

type saleResponse struct {
	Sale   Sale         `json:"sale"`
	Result RecordResult `json:"result"`
}

type expenseResponse struct {
	Expense Expense      `json:"expense"`
	Result  RecordResult `json:"result"`
}

func (h *Handler) handleRecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]ExpenseLine, 0, len(req.Expenses))
	for _, l := range req.Expenses {
		lines = append(lines, ExpenseLine{Type: ExpenseType(l.Type), Amount: l.Amount})
	}
	purchase, result, err := h.service.RecordPurchase(r.Context(), PurchaseInput{
		PartyID:         req.PartyID,
		CropID:          req.CropID,
		Quantity:        req.Quantity,
		Rate:            req.Rate,
		TotalAmount:     req.TotalAmount,
		ExpenseAmount:   req.ExpenseAmount,
		FinalAmount:     req.FinalAmount,
		QualityGrade:    req.QualityGrade,
		MoistureContent: req.MoistureContent,
		PurchaseDate:    parseDate(req.PurchaseDate),
		Expenses:        lines,
		IdempotencyKey:  r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.logger.Warn("record purchase failed", slog.Any("error", err), slog.Int64("party_id", req.PartyID))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("purchase recorded", slog.Int64("purchase_id", purchase.ID), slog.Int64("party_id", purchase.PartyID))
	httpx.JSON(w, http.StatusCreated, purchaseResponse{Purchase: purchase, Result: result})
}

func (h *Handler) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !h.decode(w, r, &req) {
		return
	}
	sale, result, err := h.service.RecordSale(r.Context(), SaleInput{
		PartyID:        req.PartyID,
		CropID:         req.CropID,
		Quantity:       req.Quantity,
		Rate:           req.Rate,
		TotalAmount:    req.TotalAmount,
		QualityGrade:   req.QualityGrade,
		SaleDate:       parseDate(req.SaleDate),
		PaymentStatus:  PaymentStatus(req.PaymentStatus),
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.logger.Warn("record sale failed", slog.Any("error", err), slog.Int64("party_id", req.PartyID))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("sale recorded", slog.Int64("sale_id", sale.ID), slog.Int64("party_id", sale.PartyID))
	httpx.JSON(w, http.StatusCreated, saleResponse{Sale: sale, Result: result})
}

func (h *Handler) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	expense, result, err := h.service.RecordExpense(r.Context(), ExpenseInput{
		Type:           ExpenseType(req.Type),
		Description:    req.Description,
		Amount:         req.Amount,
		PurchaseID:     req.PurchaseID,
		SaleID:         req.SaleID,
		ExpenseDate:    parseDate(req.ExpenseDate),
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.logger.Warn("record expense failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expenseResponse{Expense: expense, Result: result})
}

func (h *Handler) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req paymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	sale, err := h.service.UpdateSalePaymentStatus(r.Context(), id, PaymentStatus(req.Status), 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	purchase, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPurchases(r.Context(), listFilter(r))
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Purchase{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListSales(r.Context(), listFilter(r))
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListExpenses(r.Context(), listFilter(r))
	if err != nil {
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func listFilter(r *http.Request) ListFilter {
	partyID, _ := strconv.ParseInt(r.URL.Query().Get("party_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return ListFilter{PartyID: partyID, Limit: limit}
}

// parseDate accepts values already checked by the datetime validator.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, s)
	return t
}
