package trading

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/inventory"
	"github.com/cropledger/cropledger/internal/ledger"
	"github.com/cropledger/cropledger/internal/shared"
)

// PaymentStatus tracks collection on a sale.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPartial || s == PaymentPaid
}

// ExpenseType classifies an expense.
type ExpenseType string

const (
	ExpenseTransport ExpenseType = "transport"
	ExpenseStorage   ExpenseType = "storage"
	ExpenseLabor     ExpenseType = "labor"
	ExpenseOther     ExpenseType = "other"
)

// Valid reports whether t is a known expense type.
func (t ExpenseType) Valid() bool {
	switch t {
	case ExpenseTransport, ExpenseStorage, ExpenseLabor, ExpenseOther:
		return true
	}
	return false
}

// Purchase is an inbound trade with a party. Immutable once recorded.
type Purchase struct {
	ID              int64               `json:"id"`
	PartyID         int64               `json:"party_id"`
	CropID          int64               `json:"crop_id"`
	Quantity        decimal.Decimal     `json:"quantity"`
	Rate            decimal.Decimal     `json:"rate"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	ExpenseAmount   decimal.NullDecimal `json:"expense_amount"`
	FinalAmount     decimal.NullDecimal `json:"final_amount"`
	QualityGrade    string              `json:"quality_grade"`
	MoistureContent decimal.NullDecimal `json:"moisture_content"`
	PurchaseDate    time.Time           `json:"purchase_date"`
	CreatedAt       time.Time           `json:"created_at"`
}

// PayableAmount is what the party is credited: final amount when recorded,
// otherwise the total.
func (p Purchase) PayableAmount() decimal.Decimal {
	if p.FinalAmount.Valid {
		return p.FinalAmount.Decimal
	}
	return p.TotalAmount
}

// Sale is an outbound trade with a party.
type Sale struct {
	ID            int64           `json:"id"`
	PartyID       int64           `json:"party_id"`
	CropID        int64           `json:"crop_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Rate          decimal.Decimal `json:"rate"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	QualityGrade  string          `json:"quality_grade"`
	SaleDate      time.Time       `json:"sale_date"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Expense is a cost optionally linked to a purchase or a sale.
type Expense struct {
	ID          int64           `json:"id"`
	Type        ExpenseType     `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PurchaseID  *int64          `json:"purchase_id,omitempty"`
	SaleID      *int64          `json:"sale_id,omitempty"`
	ExpenseDate time.Time       `json:"expense_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RecordResult reports the side effects of recording a transaction.
type RecordResult struct {
	Movement     *inventory.MovementResult `json:"movement,omitempty"`
	Entries      []ledger.Entry            `json:"ledger_entries"`
	LedgerPosted bool                      `json:"ledger_posted"`
}

// ListFilter narrows transaction listings.
type ListFilter struct {
	PartyID int64
	Limit   int
}

var (
	ErrPartyRequired    = fmt.Errorf("trading: party required: %w", shared.ErrValidation)
	ErrCropRequired     = fmt.Errorf("trading: crop required: %w", shared.ErrValidation)
	ErrInvalidQuantity  = fmt.Errorf("trading: quantity must be > 0: %w", shared.ErrValidation)
	ErrInvalidRate      = fmt.Errorf("trading: rate must be >= 0: %w", shared.ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("trading: amount must be > 0: %w", shared.ErrValidation)
	ErrInvalidType      = fmt.Errorf("trading: unknown expense type: %w", shared.ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("trading: unknown payment status: %w", shared.ErrValidation)
	ErrUnknownReference = fmt.Errorf("trading: referenced party, crop or transaction does not exist: %w", shared.ErrValidation)
	ErrPurchaseNotFound = fmt.Errorf("trading: purchase: %w", shared.ErrNotFound)
	ErrSaleNotFound     = fmt.Errorf("trading: sale: %w", shared.ErrNotFound)
)
