package locations

import (
	"context"
	"fmt"
	"strings"

	"github.com/cropledger/cropledger/internal/masterdata/shared"
	internalShared "github.com/cropledger/cropledger/internal/shared"
)

// ErrUnknownState is returned when a city names a state that does not exist.
var ErrUnknownState = fmt.Errorf("unknown state: %w", internalShared.ErrValidation)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListStates(ctx context.Context) ([]State, error) {
	return s.repo.ListStates(ctx)
}

// CreateState stores a state with its code upper-cased.
func (s *Service) CreateState(ctx context.Context, state State) (State, error) {
	state.Name = strings.TrimSpace(state.Name)
	state.Code = strings.ToUpper(strings.TrimSpace(state.Code))
	if state.Name == "" {
		return State{}, fmt.Errorf("state name: %w", shared.ErrRequiredField)
	}
	if state.Code == "" {
		return State{}, fmt.Errorf("state code: %w", shared.ErrRequiredField)
	}
	return s.repo.CreateState(ctx, state)
}

// ListCities lists every city, or only those of stateID when it is non-zero.
func (s *Service) ListCities(ctx context.Context, stateID int64) ([]City, error) {
	if stateID < 0 {
		return nil, shared.ErrInvalidID
	}
	return s.repo.ListCities(ctx, stateID)
}

func (s *Service) CreateCity(ctx context.Context, city City) (City, error) {
	city.Name = strings.TrimSpace(city.Name)
	if city.Name == "" {
		return City{}, fmt.Errorf("city name: %w", shared.ErrRequiredField)
	}
	if city.StateID <= 0 {
		return City{}, fmt.Errorf("city state: %w", shared.ErrInvalidID)
	}
	return s.repo.CreateCity(ctx, city)
}
