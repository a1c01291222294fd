package crops

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the trading unit a crop is quoted in.
type Unit string

const (
	UnitQuintal Unit = "quintal"
	UnitKg      Unit = "kg"
	UnitTon     Unit = "ton"
)

// Crop represents a traded commodity.
type Crop struct {
	ID        int64               `json:"id"`
	Name      string              `json:"name"`
	Unit      Unit                `json:"unit"`
	BasePrice decimal.NullDecimal `json:"base_price"`
	CreatedAt time.Time           `json:"created_at"`
}

// Update carries the fields of a partial crop update. Nil fields are kept.
type Update struct {
	Name      *string
	Unit      *Unit
	BasePrice *decimal.NullDecimal
}
