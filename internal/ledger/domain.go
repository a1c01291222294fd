package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/shared"
)

// TransactionType enumerates the business events that produce entries.
type TransactionType string

const (
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeSale     TransactionType = "sale"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypePayment  TransactionType = "payment"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypePurchase, TransactionTypeSale, TransactionTypeExpense, TransactionTypePayment:
		return true
	}
	return false
}

// Entry is one immutable line of a party's ledger. Balance is the running
// balance after this entry in (TransactionDate, ID) order; positive means the
// party owes us.
type Entry struct {
	ID              int64           `json:"id"`
	PartyID         int64           `json:"party_id"`
	TransactionType TransactionType `json:"transaction_type"`
	TransactionID   int64           `json:"transaction_id,omitempty"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	Balance         decimal.Decimal `json:"balance"`
	Description     string          `json:"description"`
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PostingInput carries the data needed to append an entry.
type PostingInput struct {
	PartyID         int64
	TransactionType TransactionType
	TransactionID   int64
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	Description     string
	TransactionDate time.Time
	ActorID         int64
}

// Validate performs basic invariants.
func (p PostingInput) Validate() error {
	if p.PartyID == 0 {
		return ErrPartyRequired
	}
	if !p.TransactionType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, p.TransactionType)
	}
	if p.Debit.IsNegative() || p.Credit.IsNegative() {
		return ErrNegativeAmount
	}
	if p.Debit.IsZero() && p.Credit.IsZero() {
		return ErrEmptyPosting
	}
	return nil
}

// MaxPageSize bounds a single page of entry listings.
const MaxPageSize = 1000

// EntryFilter narrows entry listings. A zero PartyID lists every party. A
// non-zero Before returns only entries older than that entry in
// (transaction date, id) order. A zero Limit returns every matching entry.
type EntryFilter struct {
	PartyID int64
	Before  int64
	Limit   int
}

// RecomputeReport describes the outcome of rebuilding a party's snapshots.
type RecomputeReport struct {
	PartyID         int64           `json:"party_id"`
	Entries         int             `json:"entries"`
	Restated        int             `json:"restated"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	Balance         decimal.Decimal `json:"balance"`
}

// Drift is the difference between the stored mirror and the rebuilt balance.
func (r RecomputeReport) Drift() decimal.Decimal {
	return r.PreviousBalance.Sub(r.Balance)
}

// Repaired reports whether anything was rewritten.
func (r RecomputeReport) Repaired() bool {
	return r.Restated > 0 || !r.Drift().IsZero()
}

var (
	ErrPartyNotFound          = fmt.Errorf("ledger: party: %w", shared.ErrNotFound)
	ErrPartyRequired          = fmt.Errorf("ledger: party required: %w", shared.ErrValidation)
	ErrInvalidTransactionType = fmt.Errorf("ledger: invalid transaction type: %w", shared.ErrValidation)
	ErrNegativeAmount         = fmt.Errorf("ledger: debit and credit must be >= 0: %w", shared.ErrValidation)
	ErrEmptyPosting           = fmt.Errorf("ledger: debit or credit must be non zero: %w", shared.ErrValidation)
	ErrInvalidPage            = fmt.Errorf("ledger: invalid page: %w", shared.ErrValidation)
)
