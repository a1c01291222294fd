package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropledger/cropledger/internal/platform/db"
	"github.com/cropledger/cropledger/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	// GetPositionForUpdate locks the (crop, grade) key for the rest of the
	// transaction, including keys that have no row yet.
	GetPositionForUpdate(ctx context.Context, cropID int64, grade string) (Lookup, error)
	UpsertPosition(ctx context.Context, position Position) error
	InsertMovement(ctx context.Context, movement StockMovement) (int64, error)
}

type txRepo struct {
	q db.DBTX
}

// NewTxRepository binds the transactional operations to an open transaction
// so other modules can compose them into their own unit of work.
func NewTxRepository(q db.DBTX) TxRepository {
	return &txRepo{q: q}
}

// WithTx executes the callback inside a read-committed transaction; position
// locks serialise concurrent movements.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

const positionColumns = `crop_id, quality_grade, current_stock, average_cost, total_value, last_updated`

func (t *txRepo) GetPositionForUpdate(ctx context.Context, cropID int64, grade string) (Lookup, error) {
	if err := db.AdvisoryXactLock(ctx, t.q, shared.AdvisoryLockID(shared.PositionLockKey(cropID, grade))); err != nil {
		return Lookup{}, err
	}
	row := t.q.QueryRow(ctx, `SELECT `+positionColumns+`
FROM inventory_positions WHERE crop_id=$1 AND quality_grade=$2 FOR UPDATE`, cropID, grade)
	p, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(cropID, grade), nil
	}
	if err != nil {
		return Lookup{}, err
	}
	return Found(p), nil
}

func (t *txRepo) UpsertPosition(ctx context.Context, p Position) error {
	_, err := t.q.Exec(ctx, `INSERT INTO inventory_positions (crop_id, quality_grade, current_stock, average_cost, total_value, last_updated)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (crop_id, quality_grade) DO UPDATE SET
    current_stock = EXCLUDED.current_stock,
    average_cost = EXCLUDED.average_cost,
    total_value = EXCLUDED.total_value,
    last_updated = EXCLUDED.last_updated`,
		p.CropID, p.Grade, p.CurrentStock, p.AverageCost, p.TotalValue, p.LastUpdated)
	return err
}

func (t *txRepo) InsertMovement(ctx context.Context, m StockMovement) (int64, error) {
	var refID *int64
	if m.RefID != 0 {
		refID = &m.RefID
	}
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO inventory_movements
    (code, crop_id, quality_grade, qty_delta, unit_cost, balance_qty, average_cost, outcome, ref_type, ref_id, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`,
		m.Code, m.CropID, m.Grade, m.QtyDelta, m.UnitCost, m.BalanceQty, m.AverageCost,
		string(m.Outcome), m.RefType, refID, m.Note, m.CreatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListPositions returns positions ordered by crop and grade.
func (r *Repository) ListPositions(ctx context.Context, filter PositionFilter) ([]Position, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+positionColumns+`
FROM inventory_positions
WHERE ($1::bigint = 0 OR crop_id = $1) AND ($2::text = '' OR quality_grade = $2)
ORDER BY crop_id, quality_grade`, filter.CropID, filter.Grade)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ListMovements returns the stock card for a position, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, crop_id, quality_grade, qty_delta, unit_cost, balance_qty, average_cost,
       outcome, ref_type, COALESCE(ref_id, 0), note, created_at
FROM inventory_movements
WHERE crop_id = $1 AND quality_grade = $2
ORDER BY id DESC
LIMIT $3`, filter.CropID, filter.Grade, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		var outcome string
		if err := rows.Scan(&m.ID, &m.Code, &m.CropID, &m.Grade, &m.QtyDelta, &m.UnitCost, &m.BalanceQty,
			&m.AverageCost, &outcome, &m.RefType, &m.RefID, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Outcome = Outcome(outcome)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func scanPosition(row pgx.Row) (Position, error) {
	var p Position
	err := row.Scan(&p.CropID, &p.Grade, &p.CurrentStock, &p.AverageCost, &p.TotalValue, &p.LastUpdated)
	return p, err
}
