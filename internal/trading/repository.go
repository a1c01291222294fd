package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropledger/cropledger/internal/inventory"
	"github.com/cropledger/cropledger/internal/ledger"
	"github.com/cropledger/cropledger/internal/platform/db"
)

// Repository persists trading records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository groups the writes of one trading unit of work. Inventory and
// Ledger are bound to the same transaction as the record inserts.
type TxRepository interface {
	InsertPurchase(ctx context.Context, p Purchase) (Purchase, error)
	InsertSale(ctx context.Context, s Sale) (Sale, error)
	InsertExpense(ctx context.Context, e Expense) (Expense, error)
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	Inventory() inventory.TxRepository
	Ledger() ledger.TxRepository
}

type txRepo struct {
	q         db.DBTX
	inventory inventory.TxRepository
	ledger    ledger.TxRepository
}

// WithTx runs fn in one read-committed transaction shared by the record
// insert, the inventory movement and the ledger posting.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			q:         tx,
			inventory: inventory.NewTxRepository(tx),
			ledger:    ledger.NewTxRepository(tx),
		})
	})
}

func (t *txRepo) Inventory() inventory.TxRepository { return t.inventory }
func (t *txRepo) Ledger() ledger.TxRepository       { return t.ledger }

func (t *txRepo) InsertPurchase(ctx context.Context, p Purchase) (Purchase, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO purchases
    (party_id, crop_id, quantity, rate, total_amount, expense_amount, final_amount, quality_grade, moisture_content, purchase_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, created_at`,
		p.PartyID, p.CropID, p.Quantity, p.Rate, p.TotalAmount, p.ExpenseAmount, p.FinalAmount,
		p.QualityGrade, p.MoistureContent, p.PurchaseDate,
	).Scan(&p.ID, &p.CreatedAt)
	return p, mapWriteError(err)
}

func (t *txRepo) InsertSale(ctx context.Context, s Sale) (Sale, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO sales
    (party_id, crop_id, quantity, rate, total_amount, quality_grade, sale_date, payment_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`,
		s.PartyID, s.CropID, s.Quantity, s.Rate, s.TotalAmount, s.QualityGrade, s.SaleDate, string(s.PaymentStatus),
	).Scan(&s.ID, &s.CreatedAt)
	return s, mapWriteError(err)
}

func (t *txRepo) InsertExpense(ctx context.Context, e Expense) (Expense, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO expenses (type, description, amount, purchase_id, sale_id, expense_date)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`,
		string(e.Type), e.Description, e.Amount, e.PurchaseID, e.SaleID, e.ExpenseDate,
	).Scan(&e.ID, &e.CreatedAt)
	return e, mapWriteError(err)
}

func (t *txRepo) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	return getPurchase(ctx, t.q, id)
}

// GetPurchase fetches a purchase outside a unit of work.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	return getPurchase(ctx, r.pool, id)
}

// GetSale fetches a sale.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	s, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrSaleNotFound
	}
	return s, err
}

// ListPurchases returns purchases newest first.
func (r *Repository) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases
WHERE ($1::bigint = 0 OR party_id = $1)
ORDER BY purchase_date DESC, id DESC LIMIT $2`, filter.PartyID, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListSales returns sales newest first.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales
WHERE ($1::bigint = 0 OR party_id = $1)
ORDER BY sale_date DESC, id DESC LIMIT $2`, filter.PartyID, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListExpenses returns expenses newest first. PartyID matches expenses whose
// linked purchase or sale belongs to the party.
func (r *Repository) ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id, e.type, e.description, e.amount, e.purchase_id, e.sale_id, e.expense_date, e.created_at
FROM expenses e
LEFT JOIN purchases p ON p.id = e.purchase_id
LEFT JOIN sales s ON s.id = e.sale_id
WHERE ($1::bigint = 0 OR p.party_id = $1 OR s.party_id = $1)
ORDER BY e.expense_date DESC, e.id DESC LIMIT $2`, filter.PartyID, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		var e Expense
		var expenseType string
		if err := rows.Scan(&e.ID, &expenseType, &e.Description, &e.Amount, &e.PurchaseID, &e.SaleID,
			&e.ExpenseDate, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = ExpenseType(expenseType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateSalePaymentStatus sets the payment status of a sale.
func (r *Repository) UpdateSalePaymentStatus(ctx context.Context, id int64, status PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sales SET payment_status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

const purchaseColumns = `id, party_id, crop_id, quantity, rate, total_amount, expense_amount, final_amount, quality_grade, moisture_content, purchase_date, created_at`

const saleColumns = `id, party_id, crop_id, quantity, rate, total_amount, quality_grade, sale_date, payment_status, created_at`

func getPurchase(ctx context.Context, q db.DBTX, id int64) (Purchase, error) {
	p, err := scanPurchase(q.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrPurchaseNotFound
	}
	return p, err
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.PartyID, &p.CropID, &p.Quantity, &p.Rate, &p.TotalAmount, &p.ExpenseAmount,
		&p.FinalAmount, &p.QualityGrade, &p.MoistureContent, &p.PurchaseDate, &p.CreatedAt)
	return p, err
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var status string
	err := row.Scan(&s.ID, &s.PartyID, &s.CropID, &s.Quantity, &s.Rate, &s.TotalAmount, &s.QualityGrade,
		&s.SaleDate, &status, &s.CreatedAt)
	s.PaymentStatus = PaymentStatus(status)
	return s, err
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", ErrUnknownReference, err)
	}
	return err
}
