package trading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/inventory"
	"github.com/cropledger/cropledger/internal/ledger"
	"github.com/cropledger/cropledger/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, error)
	ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, error)
	UpdateSalePaymentStatus(ctx context.Context, id int64, status PaymentStatus) error
}

// InventoryPort applies stock movements inside a trading unit of work.
type InventoryPort interface {
	Apply(ctx context.Context, tx inventory.TxRepository, m inventory.Movement) (inventory.MovementResult, error)
	Observe(result inventory.MovementResult, err error)
	DefaultGrade() string
}

// LedgerPort posts party entries inside a trading unit of work.
type LedgerPort interface {
	Post(ctx context.Context, tx ledger.TxRepository, input ledger.PostingInput) (ledger.Entry, error)
	Observe(entry ledger.Entry)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against double submission.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// CacheInvalidator drops derived read models after a commit.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service records purchases, sales and expenses together with their stock
// and ledger effects.
type Service struct {
	repo        RepositoryPort
	inventory   InventoryPort
	ledger      LedgerPort
	audit       AuditPort
	idempotency IdempotencyPort
	cache       CacheInvalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs trading service.
func NewService(repo RepositoryPort, inv InventoryPort, led LedgerPort, audit AuditPort, idem IdempotencyPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, inventory: inv, ledger: led, audit: audit, idempotency: idem, logger: logger, now: time.Now}
}

// WithCache registers the read model to invalidate after each record.
func (s *Service) WithCache(cache CacheInvalidator) *Service {
	s.cache = cache
	return s
}

// RecordPurchase stores the purchase, receives its stock at the purchase rate
// and credits the party with the payable amount.
func (s *Service) RecordPurchase(ctx context.Context, input PurchaseInput) (Purchase, RecordResult, error) {
	purchase, err := s.preparePurchase(input)
	if err != nil {
		return Purchase{}, RecordResult{}, err
	}
	release, err := s.reserve(ctx, input.IdempotencyKey, "trading.purchase")
	if err != nil {
		return Purchase{}, RecordResult{}, err
	}

	var result RecordResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		result = RecordResult{}
		var err error
		purchase, err = tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		movement, err := s.inventory.Apply(ctx, tx.Inventory(), inventory.Movement{
			Code:          fmt.Sprintf("PUR-%d", purchase.ID),
			CropID:        purchase.CropID,
			Grade:         purchase.QualityGrade,
			QuantityDelta: purchase.Quantity,
			UnitCost:      purchase.Rate,
			RefType:       "purchase",
			RefID:         purchase.ID,
		})
		if err != nil {
			return err
		}
		result.Movement = &movement

		entry, err := s.ledger.Post(ctx, tx.Ledger(), ledger.PostingInput{
			PartyID:         purchase.PartyID,
			TransactionType: ledger.TransactionTypePurchase,
			TransactionID:   purchase.ID,
			Credit:          purchase.PayableAmount(),
			Description:     purchaseDescription(purchase),
			TransactionDate: purchase.PurchaseDate,
			ActorID:         input.ActorID,
		})
		if err != nil {
			return err
		}
		result.Entries = append(result.Entries, entry)

		for _, line := range input.Expenses {
			purchaseID := purchase.ID
			expense, err := tx.InsertExpense(ctx, Expense{
				Type:        line.Type,
				Description: fmt.Sprintf("%s expense for Purchase #%d", line.Type, purchase.ID),
				Amount:      line.Amount,
				PurchaseID:  &purchaseID,
				ExpenseDate: purchase.PurchaseDate,
			})
			if err != nil {
				return err
			}
			entry, err := s.postExpense(ctx, tx, expense, purchase.PartyID, input.ActorID)
			if err != nil {
				return err
			}
			result.Entries = append(result.Entries, entry)
		}
		result.LedgerPosted = true
		return nil
	})
	s.inventory.Observe(movementOf(result), err)
	if err != nil {
		release()
		return Purchase{}, RecordResult{}, err
	}
	s.committed(ctx, result, input.ActorID, "trading.purchase", "purchase", purchase.ID, map[string]any{
		"party_id": purchase.PartyID,
		"crop_id":  purchase.CropID,
		"quantity": purchase.Quantity.String(),
		"amount":   purchase.PayableAmount().String(),
	})
	return purchase, result, nil
}

// RecordSale stores the sale, issues its stock at average cost and debits
// the party with the total amount.
func (s *Service) RecordSale(ctx context.Context, input SaleInput) (Sale, RecordResult, error) {
	sale, err := s.prepareSale(input)
	if err != nil {
		return Sale{}, RecordResult{}, err
	}
	release, err := s.reserve(ctx, input.IdempotencyKey, "trading.sale")
	if err != nil {
		return Sale{}, RecordResult{}, err
	}

	var result RecordResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		result = RecordResult{}
		var err error
		sale, err = tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		movement, err := s.inventory.Apply(ctx, tx.Inventory(), inventory.Movement{
			Code:          fmt.Sprintf("SAL-%d", sale.ID),
			CropID:        sale.CropID,
			Grade:         sale.QualityGrade,
			QuantityDelta: sale.Quantity.Neg(),
			UnitCost:      decimal.Zero,
			RefType:       "sale",
			RefID:         sale.ID,
		})
		if err != nil {
			return err
		}
		result.Movement = &movement

		entry, err := s.ledger.Post(ctx, tx.Ledger(), ledger.PostingInput{
			PartyID:         sale.PartyID,
			TransactionType: ledger.TransactionTypeSale,
			TransactionID:   sale.ID,
			Debit:           sale.TotalAmount,
			Description:     fmt.Sprintf("Sale - %s units", sale.Quantity.String()),
			TransactionDate: sale.SaleDate,
			ActorID:         input.ActorID,
		})
		if err != nil {
			return err
		}
		result.Entries = append(result.Entries, entry)
		result.LedgerPosted = true
		return nil
	})
	s.inventory.Observe(movementOf(result), err)
	if err != nil {
		release()
		return Sale{}, RecordResult{}, err
	}
	s.committed(ctx, result, input.ActorID, "trading.sale", "sale", sale.ID, map[string]any{
		"party_id": sale.PartyID,
		"crop_id":  sale.CropID,
		"quantity": sale.Quantity.String(),
		"amount":   sale.TotalAmount.String(),
	})
	return sale, result, nil
}

// RecordExpense stores an expense. An expense linked to a purchase debits the
// purchase's party; any other expense leaves the ledger untouched.
func (s *Service) RecordExpense(ctx context.Context, input ExpenseInput) (Expense, RecordResult, error) {
	expense, err := s.prepareExpense(input)
	if err != nil {
		return Expense{}, RecordResult{}, err
	}
	release, err := s.reserve(ctx, input.IdempotencyKey, "trading.expense")
	if err != nil {
		return Expense{}, RecordResult{}, err
	}

	var result RecordResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		result = RecordResult{}
		var err error
		expense, err = tx.InsertExpense(ctx, expense)
		if err != nil {
			return err
		}
		if expense.PurchaseID == nil {
			return nil
		}
		purchase, err := tx.GetPurchase(ctx, *expense.PurchaseID)
		if err != nil {
			return err
		}
		entry, err := s.postExpense(ctx, tx, expense, purchase.PartyID, input.ActorID)
		if err != nil {
			return err
		}
		result.Entries = append(result.Entries, entry)
		result.LedgerPosted = true
		return nil
	})
	if err != nil {
		release()
		return Expense{}, RecordResult{}, err
	}
	s.committed(ctx, result, input.ActorID, "trading.expense", "expense", expense.ID, map[string]any{
		"type":          string(expense.Type),
		"amount":        expense.Amount.String(),
		"ledger_posted": result.LedgerPosted,
	})
	return expense, result, nil
}

// UpdateSalePaymentStatus changes the collection state of a sale.
func (s *Service) UpdateSalePaymentStatus(ctx context.Context, saleID int64, status PaymentStatus, actorID int64) (Sale, error) {
	if saleID <= 0 {
		return Sale{}, ErrSaleNotFound
	}
	status = PaymentStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return Sale{}, ErrInvalidStatus
	}
	if err := s.repo.UpdateSalePaymentStatus(ctx, saleID, status); err != nil {
		return Sale{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "trading.sale.payment_status",
			Entity:   "sale",
			EntityID: fmt.Sprintf("%d", saleID),
			Meta:     map[string]any{"status": string(status)},
			At:       s.now(),
		})
	}
	return s.repo.GetSale(ctx, saleID)
}

// GetPurchase fetches a purchase by id.
func (s *Service) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// GetSale fetches a sale by id.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListPurchases lists purchases newest first.
func (s *Service) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	return s.repo.ListPurchases(ctx, normalizeFilter(filter))
}

// ListSales lists sales newest first.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	return s.repo.ListSales(ctx, normalizeFilter(filter))
}

// ListExpenses lists expenses newest first.
func (s *Service) ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, error) {
	return s.repo.ListExpenses(ctx, normalizeFilter(filter))
}

func (s *Service) postExpense(ctx context.Context, tx TxRepository, expense Expense, partyID, actorID int64) (ledger.Entry, error) {
	description := expense.Description
	if description == "" {
		description = "Related to purchase"
	}
	return s.ledger.Post(ctx, tx.Ledger(), ledger.PostingInput{
		PartyID:         partyID,
		TransactionType: ledger.TransactionTypeExpense,
		TransactionID:   expense.ID,
		Debit:           expense.Amount,
		Description:     fmt.Sprintf("%s expense - %s", expense.Type, description),
		TransactionDate: expense.ExpenseDate,
		ActorID:         actorID,
	})
}

// reserve claims the idempotency key and returns a func that releases it
// when the unit of work fails.
func (s *Service) reserve(ctx context.Context, key, module string) (func(), error) {
	if key == "" || s.idempotency == nil {
		return func() {}, nil
	}
	if err := shared.ValidateIdempotencyKey(key); err != nil {
		return nil, err
	}
	if err := s.idempotency.CheckAndInsert(ctx, key, module); err != nil {
		return nil, err
	}
	return func() {
		if err := s.idempotency.Delete(context.WithoutCancel(ctx), key, module); err != nil {
			s.logger.Error("release idempotency key", slog.Any("error", err), slog.String("module", module))
		}
	}, nil
}

// committed runs the after-commit side effects: metrics, audit, cache.
func (s *Service) committed(ctx context.Context, result RecordResult, actorID int64, action, entity string, id int64, meta map[string]any) {
	for _, e := range result.Entries {
		s.ledger.Observe(e)
	}
	if m := result.Movement; m != nil {
		meta["outcome"] = string(m.Outcome)
		switch m.Outcome {
		case inventory.OutcomeSkipped:
			s.logger.Warn("sale against unrecorded position skipped stock movement",
				slog.Int64("crop_id", m.Position.CropID),
				slog.String("grade", m.Position.Grade),
				slog.Int64(entity+"_id", id))
		case inventory.OutcomeBackordered:
			s.logger.Warn("position backordered",
				slog.Int64("crop_id", m.Position.CropID),
				slog.String("grade", m.Position.Grade),
				slog.String("stock", m.Position.CurrentStock.String()))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   entity,
			EntityID: fmt.Sprintf("%d", id),
			Meta:     meta,
			At:       s.now(),
		})
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("dashboard cache invalidation failed", slog.Any("error", err))
		}
	}
}

func movementOf(result RecordResult) inventory.MovementResult {
	if result.Movement == nil {
		return inventory.MovementResult{}
	}
	return *result.Movement
}

func purchaseDescription(p Purchase) string {
	desc := fmt.Sprintf("Purchase - %s units", p.Quantity.String())
	if p.ExpenseAmount.Valid && p.ExpenseAmount.Decimal.IsPositive() {
		desc += fmt.Sprintf(" (incl. expenses: %s)", p.ExpenseAmount.Decimal.String())
	}
	return desc
}

func normalizeFilter(f ListFilter) ListFilter {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return f
}
