package trading

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseInput records a purchase. TotalAmount defaults to Quantity*Rate.
type PurchaseInput struct {
	PartyID         int64
	CropID          int64
	Quantity        decimal.Decimal
	Rate            decimal.Decimal
	TotalAmount     decimal.NullDecimal
	ExpenseAmount   decimal.NullDecimal
	FinalAmount     decimal.NullDecimal
	QualityGrade    string
	MoistureContent decimal.NullDecimal
	PurchaseDate    time.Time
	// Expenses are recorded against the new purchase in the same unit of work.
	Expenses       []ExpenseLine
	IdempotencyKey string
	ActorID        int64
}

// ExpenseLine is an expense captured together with a purchase.
type ExpenseLine struct {
	Type   ExpenseType
	Amount decimal.Decimal
}

// SaleInput records a sale. TotalAmount defaults to Quantity*Rate.
type SaleInput struct {
	PartyID        int64
	CropID         int64
	Quantity       decimal.Decimal
	Rate           decimal.Decimal
	TotalAmount    decimal.NullDecimal
	QualityGrade   string
	SaleDate       time.Time
	PaymentStatus  PaymentStatus
	IdempotencyKey string
	ActorID        int64
}

// ExpenseInput records a standalone expense.
type ExpenseInput struct {
	Type           ExpenseType
	Description    string
	Amount         decimal.Decimal
	PurchaseID     int64
	SaleID         int64
	ExpenseDate    time.Time
	IdempotencyKey string
	ActorID        int64
}
