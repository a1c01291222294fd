package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPositions(ctx context.Context, filter PositionFilter) ([]Position, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives movement outcomes once they are committed.
type MetricsPort interface {
	InventoryMovement(outcome string)
	InventoryOversell()
}

// Service coordinates inventory operations.
type Service struct {
	repo         RepositoryPort
	audit        AuditPort
	metrics      MetricsPort
	policy       Policy
	defaultGrade string
	now          func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
	DefaultGrade       string
	Metrics            MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	grade := cfg.DefaultGrade
	if grade == "" {
		grade = DefaultGrade
	}
	return &Service{
		repo:         repo,
		audit:        audit,
		metrics:      cfg.Metrics,
		policy:       Policy{AllowNegativeStock: cfg.AllowNegativeStock},
		defaultGrade: grade,
		now:          time.Now,
	}
}

// DefaultGrade is the grade used when a movement carries none.
func (s *Service) DefaultGrade() string {
	return s.defaultGrade
}

// ApplyMovement applies a single movement in its own unit of work.
func (s *Service) ApplyMovement(ctx context.Context, m Movement, actorID int64) (MovementResult, error) {
	var result MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = s.Apply(ctx, tx, m)
		return err
	})
	s.Observe(result, err)
	if err != nil {
		return MovementResult{}, err
	}
	if s.audit != nil && result.Outcome != OutcomeSkipped {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "inventory.movement",
			Entity:   "inventory_position",
			EntityID: fmt.Sprintf("%d:%s", result.Position.CropID, result.Position.Grade),
			Meta: map[string]any{
				"code":    result.Code,
				"qty":     m.QuantityDelta.String(),
				"outcome": string(result.Outcome),
				"note":    m.Note,
			},
		})
	}
	return result, nil
}

// Apply values and persists a movement inside the caller's unit of work.
// The position is locked until that unit of work ends.
func (s *Service) Apply(ctx context.Context, tx TxRepository, m Movement) (MovementResult, error) {
	m.Grade = s.grade(m.Grade)
	if err := validateMovement(m); err != nil {
		return MovementResult{}, err
	}
	current, err := tx.GetPositionForUpdate(ctx, m.CropID, m.Grade)
	if err != nil {
		return MovementResult{}, fmt.Errorf("inventory: lock position: %w", err)
	}
	now := s.now().UTC()
	result, err := Value(current, m, s.policy, now)
	if err != nil {
		return MovementResult{}, err
	}
	if result.Outcome == OutcomeSkipped {
		return result, nil
	}
	if err := tx.UpsertPosition(ctx, result.Position); err != nil {
		return MovementResult{}, fmt.Errorf("inventory: upsert position: %w", err)
	}

	code := m.Code
	if code == "" {
		code = "MV-" + uuid.NewString()
	}
	unitCost := m.UnitCost
	if m.QuantityDelta.IsNegative() {
		unitCost = current.Position.AverageCost
	}
	_, err = tx.InsertMovement(ctx, StockMovement{
		Code:        code,
		CropID:      m.CropID,
		Grade:       m.Grade,
		QtyDelta:    m.QuantityDelta,
		UnitCost:    unitCost,
		BalanceQty:  result.Position.CurrentStock,
		AverageCost: result.Position.AverageCost,
		Outcome:     result.Outcome,
		RefType:     m.RefType,
		RefID:       m.RefID,
		Note:        m.Note,
		CreatedAt:   now,
	})
	if err != nil {
		return MovementResult{}, fmt.Errorf("inventory: insert movement: %w", err)
	}
	result.Code = code
	return result, nil
}

// Observe records metrics for a finished movement. Call it after commit.
func (s *Service) Observe(result MovementResult, err error) {
	if s.metrics == nil {
		return
	}
	var oversell *OversellError
	switch {
	case errors.As(err, &oversell):
		s.metrics.InventoryOversell()
	case err == nil && result.Outcome != "":
		s.metrics.InventoryMovement(string(result.Outcome))
	}
}

// Positions lists positions for a crop, optionally narrowed to one grade.
// A zero cropID lists every position.
func (s *Service) Positions(ctx context.Context, cropID int64, grade string) ([]Position, error) {
	return s.repo.ListPositions(ctx, PositionFilter{CropID: cropID, Grade: grade})
}

// Movements returns the stock card of a position, newest first.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	if filter.CropID == 0 {
		return nil, ErrCropRequired
	}
	filter.Grade = s.grade(filter.Grade)
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 200
	}
	return s.repo.ListMovements(ctx, filter)
}

// RevaluePositions rewrites totalValue on positions whose stored value has
// drifted from currentStock*averageCost by more than tolerance.
func (s *Service) RevaluePositions(ctx context.Context, tolerance decimal.Decimal) (RevaluationReport, error) {
	positions, err := s.repo.ListPositions(ctx, PositionFilter{})
	if err != nil {
		return RevaluationReport{}, err
	}
	var report RevaluationReport
	for _, p := range positions {
		report.Checked++
		if _, drifted := Drift(p, tolerance); !drifted {
			continue
		}
		repaired := false
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			current, err := tx.GetPositionForUpdate(ctx, p.CropID, p.Grade)
			if err != nil {
				return err
			}
			if !current.Found {
				return nil
			}
			expected, drifted := Drift(current.Position, tolerance)
			if !drifted {
				return nil
			}
			current.Position.TotalValue = expected
			repaired = true
			return tx.UpsertPosition(ctx, current.Position)
		})
		if err != nil {
			return report, fmt.Errorf("inventory: revalue %d/%s: %w", p.CropID, p.Grade, err)
		}
		if repaired {
			report.Repaired++
		}
	}
	return report, nil
}

func (s *Service) grade(grade string) string {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return s.defaultGrade
	}
	return grade
}
