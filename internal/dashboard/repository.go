package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads aggregates from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Totals sums transactions and inventory value, counting positions below
// the low stock threshold.
func (r *Repository) Totals(ctx context.Context, lowStock int) (Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, `SELECT
    (SELECT COALESCE(SUM(total_amount), 0) FROM sales),
    (SELECT COALESCE(SUM(total_amount), 0) FROM purchases),
    (SELECT COALESCE(SUM(amount), 0) FROM expenses),
    (SELECT COALESCE(SUM(total_value), 0) FROM inventory_positions),
    (SELECT COUNT(*) FROM inventory_positions WHERE current_stock < $1)`, lowStock).
		Scan(&t.Sales, &t.Purchases, &t.Expenses, &t.InventoryValue, &t.LowStockItems)
	return t, err
}

// CropDistribution returns positive stock per crop, largest first.
func (r *Repository) CropDistribution(ctx context.Context) ([]CropStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.name, SUM(p.current_stock)
FROM inventory_positions p
JOIN crops c ON c.id = p.crop_id
WHERE p.current_stock > 0
GROUP BY c.id, c.name
ORDER BY 2 DESC, c.name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CropStock, error) {
		var cs CropStock
		err := row.Scan(&cs.Name, &cs.Value)
		return cs, err
	})
}

// DailySales sums sales per UTC day from since onwards.
func (r *Repository) DailySales(ctx context.Context, since time.Time) ([]DailyTotal, error) {
	return r.daily(ctx, `SELECT (sale_date AT TIME ZONE 'UTC')::date, SUM(total_amount)
FROM sales WHERE sale_date >= $1 GROUP BY 1 ORDER BY 1`, since)
}

// DailyPurchases sums purchases per UTC day from since onwards.
func (r *Repository) DailyPurchases(ctx context.Context, since time.Time) ([]DailyTotal, error) {
	return r.daily(ctx, `SELECT (purchase_date AT TIME ZONE 'UTC')::date, SUM(total_amount)
FROM purchases WHERE purchase_date >= $1 GROUP BY 1 ORDER BY 1`, since)
}

func (r *Repository) daily(ctx context.Context, query string, since time.Time) ([]DailyTotal, error) {
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DailyTotal, error) {
		var d DailyTotal
		err := row.Scan(&d.Day, &d.Total)
		return d, err
	})
}
