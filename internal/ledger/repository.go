package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/platform/db"
)

// Repository persists ledger entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations used while a party is locked.
type TxRepository interface {
	// LockParty takes the party row lock and returns the mirrored balance.
	LockParty(ctx context.Context, partyID int64) (decimal.Decimal, error)
	PriorEntry(ctx context.Context, partyID int64, at time.Time) (Entry, bool, error)
	InsertEntry(ctx context.Context, entry Entry) (Entry, error)
	EntriesAfter(ctx context.Context, partyID int64, at time.Time) ([]Entry, error)
	PartyEntries(ctx context.Context, partyID int64) ([]Entry, error)
	UpdateEntryBalance(ctx context.Context, entryID int64, balance decimal.Decimal) error
	SetPartyBalance(ctx context.Context, partyID int64, balance decimal.Decimal) error
}

type txRepo struct {
	q db.DBTX
}

// NewTxRepository binds the ledger operations to an open transaction.
func NewTxRepository(q db.DBTX) TxRepository {
	return &txRepo{q: q}
}

// WithTx runs fn in a read-committed transaction; the party row lock
// serialises postings.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

const entryColumns = `id, party_id, transaction_type, COALESCE(transaction_id, 0), debit, credit, balance, description, transaction_date, created_at`

func (t *txRepo) LockParty(ctx context.Context, partyID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.q.QueryRow(ctx, `SELECT balance FROM parties WHERE id=$1 FOR UPDATE`, partyID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrPartyNotFound
	}
	return balance, err
}

func (t *txRepo) PriorEntry(ctx context.Context, partyID int64, at time.Time) (Entry, bool, error) {
	row := t.q.QueryRow(ctx, `SELECT `+entryColumns+`
FROM ledger_entries
WHERE party_id=$1 AND transaction_date <= $2
ORDER BY transaction_date DESC, id DESC
LIMIT 1`, partyID, at)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (t *txRepo) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	var txID *int64
	if e.TransactionID != 0 {
		txID = &e.TransactionID
	}
	err := t.q.QueryRow(ctx, `INSERT INTO ledger_entries
    (party_id, transaction_type, transaction_id, debit, credit, balance, description, transaction_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`,
		e.PartyID, string(e.TransactionType), txID, e.Debit, e.Credit, e.Balance, e.Description, e.TransactionDate,
	).Scan(&e.ID, &e.CreatedAt)
	return e, err
}

func (t *txRepo) EntriesAfter(ctx context.Context, partyID int64, at time.Time) ([]Entry, error) {
	return collectEntries(t.q.Query(ctx, `SELECT `+entryColumns+`
FROM ledger_entries
WHERE party_id=$1 AND transaction_date > $2
ORDER BY transaction_date, id`, partyID, at))
}

func (t *txRepo) PartyEntries(ctx context.Context, partyID int64) ([]Entry, error) {
	return collectEntries(t.q.Query(ctx, `SELECT `+entryColumns+`
FROM ledger_entries
WHERE party_id=$1
ORDER BY transaction_date, id`, partyID))
}

func (t *txRepo) UpdateEntryBalance(ctx context.Context, entryID int64, balance decimal.Decimal) error {
	_, err := t.q.Exec(ctx, `UPDATE ledger_entries SET balance=$2 WHERE id=$1`, entryID, balance)
	return err
}

func (t *txRepo) SetPartyBalance(ctx context.Context, partyID int64, balance decimal.Decimal) error {
	_, err := t.q.Exec(ctx, `UPDATE parties SET balance=$2, updated_at=NOW() WHERE id=$1`, partyID, balance)
	return err
}

// ListEntries returns entries newest first. An unknown Before id yields no rows.
func (r *Repository) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return collectEntries(r.pool.Query(ctx, `SELECT `+entryColumns+`
FROM ledger_entries
WHERE ($1::bigint = 0 OR party_id = $1)
  AND ($2::bigint = 0 OR (transaction_date, id) <
       (SELECT c.transaction_date, c.id FROM ledger_entries c WHERE c.id = $2))
ORDER BY transaction_date DESC, id DESC
LIMIT NULLIF($3::int, 0)`, filter.PartyID, filter.Before, filter.Limit))
}

// PartyBalance reads the mirrored balance without locking.
func (r *Repository) PartyBalance(ctx context.Context, partyID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT balance FROM parties WHERE id=$1`, partyID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrPartyNotFound
	}
	return balance, err
}

// PartyIDs lists all party ids in ascending order.
func (r *Repository) PartyIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM parties ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func collectEntries(rows pgx.Rows, err error) ([]Entry, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var txType string
	err := row.Scan(&e.ID, &e.PartyID, &txType, &e.TransactionID, &e.Debit, &e.Credit, &e.Balance,
		&e.Description, &e.TransactionDate, &e.CreatedAt)
	e.TransactionType = TransactionType(txType)
	return e, err
}
