package trading

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func (s *Service) preparePurchase(in PurchaseInput) (Purchase, error) {
	if in.PartyID <= 0 {
		return Purchase{}, ErrPartyRequired
	}
	if in.CropID <= 0 {
		return Purchase{}, ErrCropRequired
	}
	if !in.Quantity.IsPositive() {
		return Purchase{}, ErrInvalidQuantity
	}
	if in.Rate.IsNegative() {
		return Purchase{}, ErrInvalidRate
	}
	for _, line := range in.Expenses {
		if !line.Type.Valid() {
			return Purchase{}, ErrInvalidType
		}
		if !line.Amount.IsPositive() {
			return Purchase{}, ErrInvalidAmount
		}
	}
	total := in.Quantity.Mul(in.Rate)
	if in.TotalAmount.Valid {
		if in.TotalAmount.Decimal.IsNegative() {
			return Purchase{}, ErrInvalidAmount
		}
		total = in.TotalAmount.Decimal
	}
	expenseAmount := in.ExpenseAmount
	if !expenseAmount.Valid && len(in.Expenses) > 0 {
		sum := decimal.Zero
		for _, line := range in.Expenses {
			sum = sum.Add(line.Amount)
		}
		expenseAmount = decimal.NewNullDecimal(sum)
	}
	if in.FinalAmount.Valid && in.FinalAmount.Decimal.IsNegative() {
		return Purchase{}, ErrInvalidAmount
	}
	return Purchase{
		PartyID:         in.PartyID,
		CropID:          in.CropID,
		Quantity:        in.Quantity,
		Rate:            in.Rate,
		TotalAmount:     total,
		ExpenseAmount:   expenseAmount,
		FinalAmount:     in.FinalAmount,
		QualityGrade:    s.grade(in.QualityGrade),
		MoistureContent: in.MoistureContent,
		PurchaseDate:    s.date(in.PurchaseDate),
	}, nil
}

func (s *Service) prepareSale(in SaleInput) (Sale, error) {
	if in.PartyID <= 0 {
		return Sale{}, ErrPartyRequired
	}
	if in.CropID <= 0 {
		return Sale{}, ErrCropRequired
	}
	if !in.Quantity.IsPositive() {
		return Sale{}, ErrInvalidQuantity
	}
	if in.Rate.IsNegative() {
		return Sale{}, ErrInvalidRate
	}
	total := in.Quantity.Mul(in.Rate)
	if in.TotalAmount.Valid {
		if in.TotalAmount.Decimal.IsNegative() {
			return Sale{}, ErrInvalidAmount
		}
		total = in.TotalAmount.Decimal
	}
	status := in.PaymentStatus
	if status == "" {
		status = PaymentPending
	}
	if !status.Valid() {
		return Sale{}, ErrInvalidStatus
	}
	return Sale{
		PartyID:       in.PartyID,
		CropID:        in.CropID,
		Quantity:      in.Quantity,
		Rate:          in.Rate,
		TotalAmount:   total,
		QualityGrade:  s.grade(in.QualityGrade),
		SaleDate:      s.date(in.SaleDate),
		PaymentStatus: status,
	}, nil
}

func (s *Service) prepareExpense(in ExpenseInput) (Expense, error) {
	if !in.Type.Valid() {
		return Expense{}, ErrInvalidType
	}
	if !in.Amount.IsPositive() {
		return Expense{}, ErrInvalidAmount
	}
	e := Expense{
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		ExpenseDate: s.date(in.ExpenseDate),
	}
	if in.PurchaseID > 0 {
		id := in.PurchaseID
		e.PurchaseID = &id
	}
	if in.SaleID > 0 {
		id := in.SaleID
		e.SaleID = &id
	}
	return e, nil
}

func (s *Service) date(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t.UTC()
}

// grade applies the inventory default so the stored record and the position
// key agree.
func (s *Service) grade(g string) string {
	g = strings.TrimSpace(g)
	if g == "" {
		return s.inventory.DefaultGrade()
	}
	return g
}
