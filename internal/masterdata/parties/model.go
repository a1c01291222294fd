package parties

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type classifies a trading counterparty.
type Type string

const (
	TypeFarmer   Type = "farmer"
	TypeTrader   Type = "trader"
	TypeExporter Type = "exporter"
)

// Valid reports whether t is a known party type.
func (t Type) Valid() bool {
	return t == TypeFarmer || t == TypeTrader || t == TypeExporter
}

// Party represents a farmer, trader or exporter. Balance mirrors the latest
// ledger entry and is never written through this package.
type Party struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Type          Type            `json:"type"`
	ContactNumber string          `json:"contact_number"`
	Email         string          `json:"email"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
