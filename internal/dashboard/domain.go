package dashboard

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/shared"
)

// DefaultLowStockThreshold marks positions holding less than this quantity.
const DefaultLowStockThreshold = 50

// Totals are the raw sums the metrics are derived from.
type Totals struct {
	Sales          decimal.Decimal
	Purchases      decimal.Decimal
	Expenses       decimal.Decimal
	InventoryValue decimal.Decimal
	LowStockItems  int
}

// Metrics summarises trading activity.
type Metrics struct {
	TotalSales          decimal.Decimal `json:"total_sales"`
	TotalPurchases      decimal.Decimal `json:"total_purchases"`
	TotalExpenses       decimal.Decimal `json:"total_expenses"`
	TotalInventoryValue decimal.Decimal `json:"total_inventory_value"`
	TotalProfit         decimal.Decimal `json:"total_profit"`
	LowStockItems       int             `json:"low_stock_items"`
}

// CropStock is the stock held for one crop across grades.
type CropStock struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// TrendPoint holds one day of sales and purchases.
type TrendPoint struct {
	Date      string          `json:"date"`
	Sales     decimal.Decimal `json:"sales"`
	Purchases decimal.Decimal `json:"purchases"`
}

// DailyTotal is a per-day sum returned by the repository.
type DailyTotal struct {
	Day   time.Time
	Total decimal.Decimal
}

// Period selects the trend window.
type Period string

const (
	Period7Days   Period = "7days"
	Period30Days  Period = "30days"
	Period3Months Period = "3months"
)

// Days returns the window length.
func (p Period) Days() (int, error) {
	switch p {
	case "", Period7Days:
		return 7, nil
	case Period30Days:
		return 30, nil
	case Period3Months:
		return 90, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
}

// ErrInvalidPeriod is returned for unknown trend windows.
var ErrInvalidPeriod = fmt.Errorf("dashboard: unknown period: %w", shared.ErrValidation)

func metricsFrom(t Totals) Metrics {
	return Metrics{
		TotalSales:          t.Sales,
		TotalPurchases:      t.Purchases,
		TotalExpenses:       t.Expenses,
		TotalInventoryValue: t.InventoryValue,
		TotalProfit:         t.Sales.Sub(t.Purchases).Sub(t.Expenses),
		LowStockItems:       t.LowStockItems,
	}
}
