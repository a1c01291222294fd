package parties

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cropledger/cropledger/internal/masterdata/shared"
	internalShared "github.com/cropledger/cropledger/internal/shared"
)

type memoryRepo struct {
	parties map[int64]Party
	ledger  map[int64]bool
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{parties: map[int64]Party{}, ledger: map[int64]bool{}}
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Party, int, error) {
	var out []Party
	for _, p := range r.parties {
		if filters.Type != "" && string(p.Type) != filters.Type {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	start := filters.Offset()
	if start > total {
		start = total
	}
	end := start + filters.Limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Party, error) {
	p, ok := r.parties[id]
	if !ok {
		return Party{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, p Party) (Party, error) {
	r.nextID++
	p.ID = r.nextID
	r.parties[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, p Party) error {
	existing, ok := r.parties[id]
	if !ok {
		return ErrNotFound
	}
	p.ID = id
	p.Balance = existing.Balance
	r.parties[id] = p
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.parties[id]; !ok {
		return ErrNotFound
	}
	delete(r.parties, id)
	return nil
}

func (r *memoryRepo) HasLedgerEntries(ctx context.Context, id int64) (bool, error) {
	return r.ledger[id], nil
}

func TestCreateNormalisesAndValidates(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, Party{Name: "  Ramesh Patel ", Type: "Farmer", City: " Indore "})
	require.NoError(t, err)
	require.Equal(t, "Ramesh Patel", created.Name)
	require.Equal(t, TypeFarmer, created.Type)
	require.Equal(t, "Indore", created.City)

	_, err = svc.Create(ctx, Party{Name: "", Type: TypeTrader})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(ctx, Party{Name: "Broker", Type: "broker"})
	require.ErrorIs(t, err, internalShared.ErrValidation)
}

func TestUpdateKeepsBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Party{Name: "Agro Exports", Type: TypeExporter})
	require.NoError(t, err)
	p := repo.parties[created.ID]
	p.Balance = decimal.NewFromInt(5000)
	repo.parties[created.ID] = p

	updated, err := svc.Update(ctx, created.ID, Party{Name: "Agro Exports Ltd", Type: TypeExporter, Balance: decimal.Zero})
	require.NoError(t, err)
	require.Equal(t, "Agro Exports Ltd", updated.Name)
	require.True(t, updated.Balance.Equal(decimal.NewFromInt(5000)))

	_, err = svc.Update(ctx, 404, Party{Name: "Ghost", Type: TypeTrader})
	require.ErrorIs(t, err, internalShared.ErrNotFound)
}

func TestDeleteRefusesPartiesWithLedgerEntries(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	used, err := svc.Create(ctx, Party{Name: "Mandi Traders", Type: TypeTrader})
	require.NoError(t, err)
	unused, err := svc.Create(ctx, Party{Name: "New Farmer", Type: TypeFarmer})
	require.NoError(t, err)
	repo.ledger[used.ID] = true

	err = svc.Delete(ctx, used.ID)
	require.ErrorIs(t, err, shared.ErrInUse)
	require.ErrorIs(t, err, internalShared.ErrConflict)

	require.NoError(t, svc.Delete(ctx, unused.ID))
	_, err = svc.Get(ctx, unused.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, 0), shared.ErrInvalidID)
}

func TestListFiltersByType(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	for _, p := range []Party{
		{Name: "A Farmer", Type: TypeFarmer},
		{Name: "B Farmer", Type: TypeFarmer},
		{Name: "C Trader", Type: TypeTrader},
	} {
		_, err := svc.Create(ctx, p)
		require.NoError(t, err)
	}

	farmers, total, err := svc.List(ctx, shared.ListFilters{Type: "farmer"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, farmers, 2)

	_, _, err = svc.List(ctx, shared.ListFilters{Type: "bank"})
	require.ErrorIs(t, err, internalShared.ErrValidation)
}
