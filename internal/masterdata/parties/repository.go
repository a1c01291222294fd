package parties

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropledger/cropledger/internal/masterdata/shared"
	"github.com/cropledger/cropledger/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Party, int, error)
	Get(ctx context.Context, id int64) (Party, error)
	Create(ctx context.Context, party Party) (Party, error)
	Update(ctx context.Context, id int64, party Party) error
	Delete(ctx context.Context, id int64) error
	HasLedgerEntries(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const partyColumns = `id, name, type, contact_number, email, address, city, state, balance, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Party, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $` + strconv.Itoa(len(args)) + ` OR city ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	if filters.Type != "" {
		args = append(args, filters.Type)
		where += ` AND type = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM parties`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + partyColumns + ` FROM parties` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	args = append(args, filters.Limit, filters.Offset())
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var parties []Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, 0, err
		}
		parties = append(parties, p)
	}
	return parties, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Party, error) {
	p, err := scanParty(r.db.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, party Party) (Party, error) {
	query := `INSERT INTO parties (name, type, contact_number, email, address, city, state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`
	now := time.Now()
	err := r.db.QueryRow(ctx, query, party.Name, string(party.Type), party.ContactNumber, party.Email,
		party.Address, party.City, party.State, now).Scan(&party.ID)
	if err != nil {
		return Party{}, err
	}
	party.CreatedAt = now
	party.UpdatedAt = now
	return party, nil
}

// Update rewrites descriptive fields only; balance belongs to the ledger.
func (r *repository) Update(ctx context.Context, id int64, party Party) error {
	query := `UPDATE parties SET name = $1, type = $2, contact_number = $3, email = $4, address = $5, city = $6, state = $7, updated_at = $8 WHERE id = $9`
	tag, err := r.db.Exec(ctx, query, party.Name, string(party.Type), party.ContactNumber, party.Email,
		party.Address, party.City, party.State, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM parties WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("party %d: %w", id, shared.ErrInUse)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) HasLedgerEntries(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE party_id = $1)`, id).Scan(&exists)
	return exists, err
}

func scanParty(row pgx.Row) (Party, error) {
	var p Party
	var partyType string
	err := row.Scan(&p.ID, &p.Name, &partyType, &p.ContactNumber, &p.Email, &p.Address, &p.City, &p.State,
		&p.Balance, &p.CreatedAt, &p.UpdatedAt)
	p.Type = Type(partyType)
	return p, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "balance":
		return "balance " + dir + ", id"
	case "created_at":
		return "created_at " + dir + ", id"
	default:
		return "name " + dir + ", id"
	}
}
