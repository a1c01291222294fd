package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy controls how the valuation handles stock shortfalls.
type Policy struct {
	// AllowNegativeStock lets outbound movements drive stock below zero
	// instead of rejecting them with an *OversellError.
	AllowNegativeStock bool
}

// Value computes the next state of a position for a movement using the
// weighted-average cost method. It is pure: persistence is the caller's job.
//
// Outbound movements never change the average cost. When the resulting stock
// is zero or negative the average is retained rather than divided.
func Value(current Lookup, m Movement, policy Policy, now time.Time) (MovementResult, error) {
	if err := validateMovement(m); err != nil {
		return MovementResult{}, err
	}
	delta := m.QuantityDelta
	inbound := delta.IsPositive()

	if !current.Found {
		if !inbound {
			if !policy.AllowNegativeStock {
				return MovementResult{}, &OversellError{
					CropID:    m.CropID,
					Grade:     m.Grade,
					Available: decimal.Zero,
					Requested: delta.Neg(),
				}
			}
			return MovementResult{Position: current.Position, Outcome: OutcomeSkipped}, nil
		}
		pos := Position{
			CropID:       m.CropID,
			Grade:        m.Grade,
			CurrentStock: delta,
			AverageCost:  m.UnitCost,
			TotalValue:   delta.Mul(m.UnitCost),
			LastUpdated:  now,
		}
		return MovementResult{Position: pos, Outcome: OutcomeCreated}, nil
	}

	pos := current.Position
	newStock := pos.CurrentStock.Add(delta)
	if newStock.IsNegative() && !inbound && !policy.AllowNegativeStock {
		return MovementResult{}, &OversellError{
			CropID:    m.CropID,
			Grade:     m.Grade,
			Available: pos.CurrentStock,
			Requested: delta.Neg(),
		}
	}

	newAvg := pos.AverageCost
	if inbound && m.UnitCost.IsPositive() && newStock.IsPositive() {
		carried := pos.CurrentStock.Mul(pos.AverageCost)
		received := delta.Mul(m.UnitCost)
		newAvg = carried.Add(received).Div(newStock).Round(CostScale)
	}

	pos.CurrentStock = newStock
	pos.AverageCost = newAvg
	pos.TotalValue = newStock.Mul(newAvg)
	pos.LastUpdated = now

	outcome := OutcomeUpdated
	if newStock.IsNegative() {
		outcome = OutcomeBackordered
	}
	return MovementResult{Position: pos, Outcome: outcome}, nil
}

func validateMovement(m Movement) error {
	if m.CropID == 0 {
		return ErrCropRequired
	}
	if m.QuantityDelta.IsZero() {
		return ErrInvalidQuantity
	}
	if m.UnitCost.IsNegative() {
		return ErrInvalidUnitCost
	}
	return nil
}

// Drift reports whether the stored total value disagrees with stock*cost.
func Drift(p Position, tolerance decimal.Decimal) (decimal.Decimal, bool) {
	expected := p.CurrentStock.Mul(p.AverageCost)
	diff := expected.Sub(p.TotalValue).Abs()
	return expected, diff.GreaterThan(tolerance)
}
