package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// post appends an entry for a party whose row is already locked by tx. Later
// dated entries have their balance snapshots restated so the running balance
// stays cumulative in (TransactionDate, ID) order; the tail becomes the
// party's mirrored balance.
func post(ctx context.Context, tx TxRepository, in PostingInput) (Entry, error) {
	prior := decimal.Zero
	last, found, err := tx.PriorEntry(ctx, in.PartyID, in.TransactionDate)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: prior entry: %w", err)
	}
	if found {
		prior = last.Balance
	}

	entry := Entry{
		PartyID:         in.PartyID,
		TransactionType: in.TransactionType,
		TransactionID:   in.TransactionID,
		Debit:           in.Debit,
		Credit:          in.Credit,
		Balance:         prior.Add(in.Debit).Sub(in.Credit),
		Description:     in.Description,
		TransactionDate: in.TransactionDate,
	}
	entry, err = tx.InsertEntry(ctx, entry)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: insert entry: %w", err)
	}

	later, err := tx.EntriesAfter(ctx, in.PartyID, in.TransactionDate)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: later entries: %w", err)
	}
	tail, _, err := restate(ctx, tx, entry.Balance, later)
	if err != nil {
		return Entry{}, err
	}
	if err := tx.SetPartyBalance(ctx, in.PartyID, tail); err != nil {
		return Entry{}, fmt.Errorf("ledger: mirror balance: %w", err)
	}
	return entry, nil
}

// restate walks entries in order from a starting balance and rewrites any
// snapshot that disagrees. It returns the final balance and the number of
// rows rewritten.
func restate(ctx context.Context, tx TxRepository, start decimal.Decimal, entries []Entry) (decimal.Decimal, int, error) {
	running := start
	changed := 0
	for _, e := range entries {
		running = running.Add(e.Debit).Sub(e.Credit)
		if e.Balance.Equal(running) {
			continue
		}
		if err := tx.UpdateEntryBalance(ctx, e.ID, running); err != nil {
			return decimal.Zero, changed, fmt.Errorf("ledger: restate entry %d: %w", e.ID, err)
		}
		changed++
	}
	return running, changed, nil
}

// recompute rebuilds every snapshot of a locked party from zero.
func recompute(ctx context.Context, tx TxRepository, partyID int64, mirror decimal.Decimal) (RecomputeReport, error) {
	entries, err := tx.PartyEntries(ctx, partyID)
	if err != nil {
		return RecomputeReport{}, fmt.Errorf("ledger: party entries: %w", err)
	}
	balance, changed, err := restate(ctx, tx, decimal.Zero, entries)
	if err != nil {
		return RecomputeReport{}, err
	}
	if !balance.Equal(mirror) {
		if err := tx.SetPartyBalance(ctx, partyID, balance); err != nil {
			return RecomputeReport{}, fmt.Errorf("ledger: mirror balance: %w", err)
		}
	}
	return RecomputeReport{
		PartyID:         partyID,
		Entries:         len(entries),
		Restated:        changed,
		PreviousBalance: mirror,
		Balance:         balance,
	}, nil
}
