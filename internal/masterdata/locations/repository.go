package locations

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropledger/cropledger/internal/platform/db"
	internalShared "github.com/cropledger/cropledger/internal/shared"
)

type Repository interface {
	ListStates(ctx context.Context) ([]State, error)
	CreateState(ctx context.Context, state State) (State, error)
	ListCities(ctx context.Context, stateID int64) ([]City, error)
	CreateCity(ctx context.Context, city City) (City, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListStates(ctx context.Context) ([]State, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, code, created_at FROM states ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (State, error) {
		var s State
		err := row.Scan(&s.ID, &s.Name, &s.Code, &s.CreatedAt)
		return s, err
	})
}

func (r *repository) CreateState(ctx context.Context, state State) (State, error) {
	state.CreatedAt = time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO states (name, code, created_at) VALUES ($1, $2, $3) RETURNING id`,
		state.Name, state.Code, state.CreatedAt).Scan(&state.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return State{}, fmt.Errorf("state %q: %w", state.Name, internalShared.ErrDuplicate)
		}
		return State{}, err
	}
	return state, nil
}

func (r *repository) ListCities(ctx context.Context, stateID int64) ([]City, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, state_id, created_at FROM cities
WHERE ($1::bigint = 0 OR state_id = $1)
ORDER BY name, id`, stateID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (City, error) {
		var c City
		err := row.Scan(&c.ID, &c.Name, &c.StateID, &c.CreatedAt)
		return c, err
	})
}

func (r *repository) CreateCity(ctx context.Context, city City) (City, error) {
	city.CreatedAt = time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO cities (name, state_id, created_at) VALUES ($1, $2, $3) RETURNING id`,
		city.Name, city.StateID, city.CreatedAt).Scan(&city.ID)
	switch {
	case err == nil:
		return city, nil
	case db.IsForeignKeyViolation(err):
		return City{}, fmt.Errorf("state %d: %w", city.StateID, ErrUnknownState)
	case db.IsUniqueViolation(err):
		return City{}, fmt.Errorf("city %q: %w", city.Name, internalShared.ErrDuplicate)
	default:
		return City{}, err
	}
}
