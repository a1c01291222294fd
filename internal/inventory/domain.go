package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/shared"
)

// DefaultGrade is applied when a movement carries no quality grade.
const DefaultGrade = "A"

// CostScale is the number of decimal places kept on average unit cost.
const CostScale = 6

// Outcome describes what a movement did to its position.
type Outcome string

const (
	// OutcomeCreated means the movement opened a new position.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means an existing position was adjusted.
	OutcomeUpdated Outcome = "updated"
	// OutcomeSkipped means an outbound movement hit an unrecorded position and was ignored.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeBackordered means the position was driven below zero.
	OutcomeBackordered Outcome = "backordered"
)

// Position is the (crop, quality grade) stock bucket.
type Position struct {
	CropID       int64           `json:"crop_id"`
	Grade        string          `json:"quality_grade"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	TotalValue   decimal.Decimal `json:"total_value"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// Lookup is the result of reading a position that may not exist yet.
type Lookup struct {
	Position Position
	Found    bool
}

// Found wraps an existing position.
func Found(p Position) Lookup { return Lookup{Position: p, Found: true} }

// NotFound marks a position that has never been recorded.
func NotFound(cropID int64, grade string) Lookup {
	return Lookup{Position: Position{CropID: cropID, Grade: grade}}
}

// Movement is a signed stock change against one position. Inbound movements
// carry a unit cost; outbound movements consume stock at the average cost.
type Movement struct {
	Code          string
	CropID        int64
	Grade         string
	QuantityDelta decimal.Decimal
	UnitCost      decimal.Decimal
	RefType       string
	RefID         int64
	Note          string
}

// MovementResult is what ApplyMovement reports back to callers.
type MovementResult struct {
	Position Position `json:"position"`
	Outcome  Outcome  `json:"outcome"`
	Code     string   `json:"code"`
}

// StockMovement is one row of the stock card of a position.
type StockMovement struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	CropID      int64           `json:"crop_id"`
	Grade       string          `json:"quality_grade"`
	QtyDelta    decimal.Decimal `json:"qty_delta"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	BalanceQty  decimal.Decimal `json:"balance_qty"`
	AverageCost decimal.Decimal `json:"average_cost"`
	Outcome     Outcome         `json:"outcome"`
	RefType     string          `json:"ref_type"`
	RefID       int64           `json:"ref_id,omitempty"`
	Note        string          `json:"note"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PositionFilter narrows position listings. Zero values match everything.
type PositionFilter struct {
	CropID int64
	Grade  string
}

// MovementFilter narrows stock card listings.
type MovementFilter struct {
	CropID int64
	Grade  string
	Limit  int
}

// RevaluationReport summarises a totalValue consistency sweep.
type RevaluationReport struct {
	Checked  int
	Repaired int
}

var (
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = fmt.Errorf("inventory: negative stock not allowed: %w", shared.ErrConflict)
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = fmt.Errorf("inventory: quantity must be non zero: %w", shared.ErrValidation)
	// ErrInvalidUnitCost indicates invalid cost value.
	ErrInvalidUnitCost = fmt.Errorf("inventory: unit cost must be >= 0: %w", shared.ErrValidation)
	// ErrCropRequired indicates a movement without crop.
	ErrCropRequired = fmt.Errorf("inventory: crop required: %w", shared.ErrValidation)
)

// OversellError reports a movement rejected because stock would go negative.
type OversellError struct {
	CropID    int64
	Grade     string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *OversellError) Error() string {
	return fmt.Sprintf("inventory: crop %d grade %s: requested %s, available %s",
		e.CropID, e.Grade, e.Requested.String(), e.Available.String())
}

func (e *OversellError) Unwrap() error {
	return ErrNegativeStock
}
