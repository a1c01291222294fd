package crops

import (
	"context"
	"fmt"
	"strings"

	"github.com/cropledger/cropledger/internal/masterdata/shared"
	internalShared "github.com/cropledger/cropledger/internal/shared"
)

// ErrNotFound is returned for unknown crop ids.
var ErrNotFound = fmt.Errorf("crop: %w", internalShared.ErrNotFound)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Crop, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Crop, error) {
	if id <= 0 {
		return Crop{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, crop Crop) (Crop, error) {
	crop.Name = strings.TrimSpace(crop.Name)
	crop.Unit = Unit(strings.ToLower(strings.TrimSpace(string(crop.Unit))))
	if crop.Unit == "" {
		crop.Unit = UnitQuintal
	}
	if err := s.validate(crop); err != nil {
		return Crop{}, err
	}
	return s.repo.Create(ctx, crop)
}

// Update applies a partial update. Stock and cost live on inventory
// positions and are never touched here.
func (s *Service) Update(ctx context.Context, id int64, upd Update) (Crop, error) {
	if id <= 0 {
		return Crop{}, shared.ErrInvalidID
	}
	crop, err := s.repo.Get(ctx, id)
	if err != nil {
		return Crop{}, err
	}
	if upd.Name != nil {
		crop.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Unit != nil {
		crop.Unit = Unit(strings.ToLower(strings.TrimSpace(string(*upd.Unit))))
	}
	if upd.BasePrice != nil {
		crop.BasePrice = *upd.BasePrice
	}
	if err := s.validate(crop); err != nil {
		return Crop{}, err
	}
	if err := s.repo.Update(ctx, crop); err != nil {
		return Crop{}, err
	}
	return crop, nil
}

// Delete removes a crop no purchase, sale or inventory position refers to.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	used, err := s.repo.IsReferenced(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("crop %d has trading or inventory records: %w", id, shared.ErrInUse)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(c Crop) error {
	if c.Name == "" {
		return fmt.Errorf("crop name: %w", shared.ErrRequiredField)
	}
	switch c.Unit {
	case UnitQuintal, UnitKg, UnitTon:
	default:
		return fmt.Errorf("crop unit %q: %w", c.Unit, internalShared.ErrValidation)
	}
	if c.BasePrice.Valid && c.BasePrice.Decimal.IsNegative() {
		return fmt.Errorf("crop base price must be >= 0: %w", internalShared.ErrValidation)
	}
	return nil
}
