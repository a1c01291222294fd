package crops

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
	internalShared "github.com/cropledger/cropledger/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Crop, int, error)
	Get(ctx context.Context, id int64) (Crop, error)
	Create(ctx context.Context, crop Crop) (Crop, error)
	Update(ctx context.Context, crop Crop) error
	Delete(ctx context.Context, id int64) error
	IsReferenced(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Crop, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM crops`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if filters.SortDir == shared.SortDesc {
		dir = "DESC"
	}
	args = append(args, filters.Limit, filters.Offset())
	query := `SELECT id, name, unit, base_price, created_at FROM crops` + where +
		` ORDER BY name ` + dir + ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var crops []Crop
	for rows.Next() {
		c, err := scanCrop(rows)
		if err != nil {
			return nil, 0, err
		}
		crops = append(crops, c)
	}
	return crops, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Crop, error) {
	c, err := scanCrop(r.db.QueryRow(ctx, `SELECT id, name, unit, base_price, created_at FROM crops WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Crop{}, ErrNotFound
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, crop Crop) (Crop, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO crops (name, unit, base_price, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		crop.Name, string(crop.Unit), crop.BasePrice, now).Scan(&crop.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Crop{}, fmt.Errorf("crop %q: %w", crop.Name, internalShared.ErrDuplicate)
		}
		return Crop{}, err
	}
	crop.CreatedAt = now
	return crop, nil
}

func (r *repository) Update(ctx context.Context, crop Crop) error {
	tag, err := r.db.Exec(ctx, `UPDATE crops SET name = $1, unit = $2, base_price = $3 WHERE id = $4`,
		crop.Name, string(crop.Unit), crop.BasePrice, crop.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("crop %q: %w", crop.Name, internalShared.ErrDuplicate)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM crops WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("crop %d: %w", id, shared.ErrInUse)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.db.QueryRow(ctx, `SELECT
    EXISTS (SELECT 1 FROM purchases WHERE crop_id = $1)
 OR EXISTS (SELECT 1 FROM sales WHERE crop_id = $1)
 OR EXISTS (SELECT 1 FROM inventory_positions WHERE crop_id = $1)
 OR EXISTS (SELECT 1 FROM inventory_movements WHERE crop_id = $1)`, id).Scan(&used)
	return used, err
}

func scanCrop(row pgx.Row) (Crop, error) {
	var c Crop
	var unit string
	err := row.Scan(&c.ID, &c.Name, &unit, &c.BasePrice, &c.CreatedAt)
	c.Unit = Unit(unit)
	return c, err
}
