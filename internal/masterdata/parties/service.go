package parties

import (
	"context"
	"fmt"

	"github.com/cropledger/cropledger/internal/masterdata/shared"
	internalShared "github.com/cropledger/cropledger/internal/shared"
)

// ErrNotFound is returned for unknown party ids.
var ErrNotFound = fmt.Errorf("party: %w", internalShared.ErrNotFound)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Party, int, error) {
	filters.Normalize()
	if filters.Type != "" && !Type(filters.Type).Valid() {
		return nil, 0, fmt.Errorf("party type %q: %w", filters.Type, internalShared.ErrValidation)
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Party, error) {
	if id <= 0 {
		return Party{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, party Party) (Party, error) {
	party = normalize(party)
	if err := s.validate(party); err != nil {
		return Party{}, err
	}
	return s.repo.Create(ctx, party)
}

func (s *Service) Update(ctx context.Context, id int64, party Party) (Party, error) {
	if id <= 0 {
		return Party{}, shared.ErrInvalidID
	}
	party = normalize(party)
	if err := s.validate(party); err != nil {
		return Party{}, err
	}
	if err := s.repo.Update(ctx, id, party); err != nil {
		return Party{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a party that has never been posted to the ledger.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	used, err := s.repo.HasLedgerEntries(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("party %d has ledger entries: %w", id, shared.ErrInUse)
	}
	return s.repo.Delete(ctx, id)
}
