package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	PartyBalance(ctx context.Context, partyID int64) (decimal.Decimal, error)
	PartyIDs(ctx context.Context) ([]int64, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts committed postings and repairs.
type MetricsPort interface {
	LedgerPosting(transactionType string)
	LedgerRepair()
}

// Service posts entries and maintains party balances.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostEntry appends an entry in its own unit of work.
func (s *Service) PostEntry(ctx context.Context, input PostingInput) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.Post(ctx, tx, input)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	s.Observe(entry)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "ledger.post",
			Entity:   "ledger_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"party_id":         entry.PartyID,
				"transaction_type": string(entry.TransactionType),
				"debit":            entry.Debit.String(),
				"credit":           entry.Credit.String(),
			},
			At: s.now(),
		})
	}
	return entry, nil
}

// Post appends an entry inside the caller's unit of work. The party row stays
// locked until that unit of work ends, so postings for one party serialise.
func (s *Service) Post(ctx context.Context, tx TxRepository, input PostingInput) (Entry, error) {
	if err := input.Validate(); err != nil {
		return Entry{}, err
	}
	if input.TransactionDate.IsZero() {
		input.TransactionDate = s.now()
	}
	input.TransactionDate = input.TransactionDate.UTC()
	if _, err := tx.LockParty(ctx, input.PartyID); err != nil {
		return Entry{}, err
	}
	return post(ctx, tx, input)
}

// Observe records metrics for a committed entry.
func (s *Service) Observe(entry Entry) {
	if s.metrics != nil && entry.ID != 0 {
		s.metrics.LedgerPosting(string(entry.TransactionType))
	}
}

// Entries lists the full history newest first by (transaction date, id).
func (s *Service) Entries(ctx context.Context, partyID int64) ([]Entry, error) {
	return s.repo.ListEntries(ctx, EntryFilter{PartyID: partyID})
}

// EntriesPage lists one keyset page of entries newest first. Callers pass the
// id of the last entry they received as Before to fetch the next page.
func (s *Service) EntriesPage(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	if filter.Limit < 0 || filter.Limit > MaxPageSize || filter.Before < 0 || filter.PartyID < 0 {
		return nil, ErrInvalidPage
	}
	return s.repo.ListEntries(ctx, filter)
}

// PartyBalance reads the mirrored balance of a party.
func (s *Service) PartyBalance(ctx context.Context, partyID int64) (decimal.Decimal, error) {
	if partyID == 0 {
		return decimal.Zero, ErrPartyRequired
	}
	return s.repo.PartyBalance(ctx, partyID)
}

// RecomputeBalances rebuilds every snapshot of a party from its entries and
// rewrites the mirrored balance when it has drifted.
func (s *Service) RecomputeBalances(ctx context.Context, partyID int64) (RecomputeReport, error) {
	if partyID == 0 {
		return RecomputeReport{}, ErrPartyRequired
	}
	var report RecomputeReport
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		mirror, err := tx.LockParty(ctx, partyID)
		if err != nil {
			return err
		}
		report, err = recompute(ctx, tx, partyID, mirror)
		return err
	})
	if err != nil {
		return RecomputeReport{}, err
	}
	if report.Repaired() && s.metrics != nil {
		s.metrics.LedgerRepair()
	}
	return report, nil
}

// PartyIDs lists every party that can carry entries.
func (s *Service) PartyIDs(ctx context.Context) ([]int64, error) {
	return s.repo.PartyIDs(ctx)
}
