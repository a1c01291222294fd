package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func inbound(qty, cost string) Movement {
	return Movement{CropID: 1, Grade: "A", QuantityDelta: dec(qty), UnitCost: dec(cost)}
}

func outbound(qty string) Movement {
	return Movement{CropID: 1, Grade: "A", QuantityDelta: dec(qty).Neg()}
}

func TestValueWeightedAverage(t *testing.T) {
	res, err := Value(NotFound(1, "A"), inbound("10", "100"), Policy{}, testNow)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)
	requireDecimal(t, "100", res.Position.AverageCost)
	requireDecimal(t, "1000", res.Position.TotalValue)

	res, err = Value(Found(res.Position), inbound("20", "130"), Policy{}, testNow)
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, res.Outcome)
	requireDecimal(t, "30", res.Position.CurrentStock)
	requireDecimal(t, "120", res.Position.AverageCost)
	requireDecimal(t, "3600", res.Position.TotalValue)

	res, err = Value(Found(res.Position), outbound("5"), Policy{}, testNow)
	require.NoError(t, err)
	requireDecimal(t, "25", res.Position.CurrentStock)
	requireDecimal(t, "120", res.Position.AverageCost)
	requireDecimal(t, "3000", res.Position.TotalValue)
}

func TestValueRoundsAverageCost(t *testing.T) {
	start := Position{CropID: 1, Grade: "A", CurrentStock: dec("1"), AverageCost: dec("1"), TotalValue: dec("1")}
	res, err := Value(Found(start), inbound("2", "2"), Policy{}, testNow)
	require.NoError(t, err)
	requireDecimal(t, "1.666667", res.Position.AverageCost)
}

func TestValueZeroCostInboundKeepsAverage(t *testing.T) {
	start := Position{CropID: 1, Grade: "A", CurrentStock: dec("10"), AverageCost: dec("50"), TotalValue: dec("500")}
	res, err := Value(Found(start), inbound("10", "0"), Policy{}, testNow)
	require.NoError(t, err)
	requireDecimal(t, "20", res.Position.CurrentStock)
	requireDecimal(t, "50", res.Position.AverageCost)
	requireDecimal(t, "1000", res.Position.TotalValue)
}

func TestValueSellAllThenSellAgain(t *testing.T) {
	start := Position{CropID: 1, Grade: "A", CurrentStock: dec("25"), AverageCost: dec("120"), TotalValue: dec("3000")}

	res, err := Value(Found(start), outbound("25"), Policy{}, testNow)
	require.NoError(t, err)
	requireDecimal(t, "0", res.Position.CurrentStock)
	requireDecimal(t, "120", res.Position.AverageCost)
	requireDecimal(t, "0", res.Position.TotalValue)
	empty := res.Position

	t.Run("rejected by default", func(t *testing.T) {
		_, err := Value(Found(empty), outbound("3"), Policy{}, testNow)
		var oversell *OversellError
		require.True(t, errors.As(err, &oversell))
		require.ErrorIs(t, err, ErrNegativeStock)
		requireDecimal(t, "0", oversell.Available)
		requireDecimal(t, "3", oversell.Requested)
	})

	t.Run("backordered when allowed", func(t *testing.T) {
		res, err := Value(Found(empty), outbound("3"), Policy{AllowNegativeStock: true}, testNow)
		require.NoError(t, err)
		require.Equal(t, OutcomeBackordered, res.Outcome)
		requireDecimal(t, "-3", res.Position.CurrentStock)
		requireDecimal(t, "120", res.Position.AverageCost)
		requireDecimal(t, "-360", res.Position.TotalValue)
	})
}

func TestValueInboundOntoBackorderCarriesShortfall(t *testing.T) {
	allow := Policy{AllowNegativeStock: true}

	t.Run("back to positive", func(t *testing.T) {
		start := Position{CropID: 1, Grade: "A", CurrentStock: dec("-5"), AverageCost: dec("120"), TotalValue: dec("-600")}
		res, err := Value(Found(start), inbound("10", "150"), allow, testNow)
		require.NoError(t, err)
		require.Equal(t, OutcomeUpdated, res.Outcome)
		requireDecimal(t, "5", res.Position.CurrentStock)
		// (-5*120 + 10*150) / 5
		requireDecimal(t, "180", res.Position.AverageCost)
		requireDecimal(t, "900", res.Position.TotalValue)
	})

	t.Run("lands on zero", func(t *testing.T) {
		start := Position{CropID: 1, Grade: "A", CurrentStock: dec("-10"), AverageCost: dec("120"), TotalValue: dec("-1200")}
		res, err := Value(Found(start), inbound("10", "150"), allow, testNow)
		require.NoError(t, err)
		require.Equal(t, OutcomeUpdated, res.Outcome)
		require.True(t, res.Position.CurrentStock.IsZero())
		requireDecimal(t, "120", res.Position.AverageCost)
		require.True(t, res.Position.TotalValue.IsZero())
	})

	t.Run("still short", func(t *testing.T) {
		start := Position{CropID: 1, Grade: "A", CurrentStock: dec("-10"), AverageCost: dec("120"), TotalValue: dec("-1200")}
		res, err := Value(Found(start), inbound("4", "150"), allow, testNow)
		require.NoError(t, err)
		require.Equal(t, OutcomeBackordered, res.Outcome)
		requireDecimal(t, "-6", res.Position.CurrentStock)
		requireDecimal(t, "120", res.Position.AverageCost)
	})
}

func TestValueOutboundWithoutPosition(t *testing.T) {
	_, err := Value(NotFound(1, "A"), outbound("4"), Policy{}, testNow)
	var oversell *OversellError
	require.ErrorAs(t, err, &oversell)
	require.Equal(t, int64(1), oversell.CropID)

	res, err := Value(NotFound(1, "A"), outbound("4"), Policy{AllowNegativeStock: true}, testNow)
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, res.Outcome)
	require.True(t, res.Position.CurrentStock.IsZero())
}

func TestValueRejectsInvalidMovements(t *testing.T) {
	_, err := Value(NotFound(1, "A"), Movement{CropID: 1, Grade: "A"}, Policy{}, testNow)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = Value(NotFound(1, "A"), inbound("1", "-1"), Policy{}, testNow)
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	_, err = Value(NotFound(0, "A"), Movement{Grade: "A", QuantityDelta: dec("1")}, Policy{}, testNow)
	require.ErrorIs(t, err, ErrCropRequired)
}

func TestDrift(t *testing.T) {
	p := Position{CurrentStock: dec("10"), AverageCost: dec("12.5"), TotalValue: dec("124")}
	expected, drifted := Drift(p, dec("0.01"))
	require.True(t, drifted)
	requireDecimal(t, "125", expected)

	p.TotalValue = dec("125.005")
	_, drifted = Drift(p, dec("0.01"))
	require.False(t, drifted)
}
