package trading

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/inventory"
	"github.com/cropledger/cropledger/internal/ledger"
	"github.com/cropledger/cropledger/internal/shared"
)

type storeState struct {
	purchases map[int64]Purchase
	sales     map[int64]Sale
	expenses  map[int64]Expense
	positions map[string]inventory.Position
	movements []inventory.StockMovement
	entries   []ledger.Entry
	balances  map[int64]decimal.Decimal
	nextID    int64
}

func (s storeState) clone() storeState {
	out := storeState{
		purchases: make(map[int64]Purchase, len(s.purchases)),
		sales:     make(map[int64]Sale, len(s.sales)),
		expenses:  make(map[int64]Expense, len(s.expenses)),
		positions: make(map[string]inventory.Position, len(s.positions)),
		movements: append([]inventory.StockMovement(nil), s.movements...),
		entries:   append([]ledger.Entry(nil), s.entries...),
		balances:  make(map[int64]decimal.Decimal, len(s.balances)),
		nextID:    s.nextID,
	}
	for k, v := range s.purchases {
		out.purchases[k] = v
	}
	for k, v := range s.sales {
		out.sales[k] = v
	}
	for k, v := range s.expenses {
		out.expenses[k] = v
	}
	for k, v := range s.positions {
		out.positions[k] = v
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	return out
}

// memoryStore runs one unit of work at a time and restores a snapshot when
// the callback fails, standing in for a rolled back transaction.
type memoryStore struct {
	mu    sync.Mutex
	crops map[int64]bool
	state storeState
}

func newMemoryStore(partyIDs []int64, cropIDs []int64) *memoryStore {
	s := &memoryStore{
		crops: make(map[int64]bool),
		state: storeState{
			purchases: map[int64]Purchase{},
			sales:     map[int64]Sale{},
			expenses:  map[int64]Expense{},
			positions: map[string]inventory.Position{},
			balances:  map[int64]decimal.Decimal{},
		},
	}
	for _, id := range partyIDs {
		s.state.balances[id] = decimal.Zero
	}
	for _, id := range cropIDs {
		s.crops[id] = true
	}
	return s
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	if err := fn(ctx, &memoryTx{store: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *memoryStore) GetPurchase(_ context.Context, id int64) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.purchases[id]
	if !ok {
		return Purchase{}, ErrPurchaseNotFound
	}
	return p, nil
}

func (s *memoryStore) GetSale(_ context.Context, id int64) (Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.state.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	return sale, nil
}

func (s *memoryStore) ListPurchases(_ context.Context, filter ListFilter) ([]Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Purchase
	for _, p := range s.state.purchases {
		if filter.PartyID == 0 || p.PartyID == filter.PartyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memoryStore) ListSales(_ context.Context, filter ListFilter) ([]Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Sale
	for _, sale := range s.state.sales {
		if filter.PartyID == 0 || sale.PartyID == filter.PartyID {
			out = append(out, sale)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memoryStore) ListExpenses(_ context.Context, _ ListFilter) ([]Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Expense
	for _, e := range s.state.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memoryStore) UpdateSalePaymentStatus(_ context.Context, id int64, status PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.state.sales[id]
	if !ok {
		return ErrSaleNotFound
	}
	sale.PaymentStatus = status
	s.state.sales[id] = sale
	return nil
}

func (s *memoryStore) position(cropID int64, grade string) (inventory.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.positions[positionKey(cropID, grade)]
	return p, ok
}

func (s *memoryStore) balance(partyID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.balances[partyID]
}

func (s *memoryStore) partyEntries(partyID int64) []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Entry
	for _, e := range s.state.entries {
		if e.PartyID == partyID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memoryStore) counts() (purchases, sales, expenses, movements, entries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.purchases), len(s.state.sales), len(s.state.expenses), len(s.state.movements), len(s.state.entries)
}

func positionKey(cropID int64, grade string) string {
	return fmt.Sprintf("%d:%s", cropID, grade)
}

// memoryTx runs with the store mutex held by WithTx.
type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) id() int64 {
	t.store.state.nextID++
	return t.store.state.nextID
}

func (t *memoryTx) InsertPurchase(_ context.Context, p Purchase) (Purchase, error) {
	if _, ok := t.store.state.balances[p.PartyID]; !ok || !t.store.crops[p.CropID] {
		return Purchase{}, ErrUnknownReference
	}
	p.ID = t.id()
	p.CreatedAt = time.Now()
	t.store.state.purchases[p.ID] = p
	return p, nil
}

func (t *memoryTx) InsertSale(_ context.Context, sale Sale) (Sale, error) {
	if _, ok := t.store.state.balances[sale.PartyID]; !ok || !t.store.crops[sale.CropID] {
		return Sale{}, ErrUnknownReference
	}
	sale.ID = t.id()
	sale.CreatedAt = time.Now()
	t.store.state.sales[sale.ID] = sale
	return sale, nil
}

func (t *memoryTx) InsertExpense(_ context.Context, e Expense) (Expense, error) {
	if e.PurchaseID != nil {
		if _, ok := t.store.state.purchases[*e.PurchaseID]; !ok {
			return Expense{}, ErrUnknownReference
		}
	}
	if e.SaleID != nil {
		if _, ok := t.store.state.sales[*e.SaleID]; !ok {
			return Expense{}, ErrUnknownReference
		}
	}
	e.ID = t.id()
	e.CreatedAt = time.Now()
	t.store.state.expenses[e.ID] = e
	return e, nil
}

func (t *memoryTx) GetPurchase(_ context.Context, id int64) (Purchase, error) {
	p, ok := t.store.state.purchases[id]
	if !ok {
		return Purchase{}, ErrPurchaseNotFound
	}
	return p, nil
}

func (t *memoryTx) Inventory() inventory.TxRepository { return t }

func (t *memoryTx) Ledger() ledger.TxRepository { return t }

func (t *memoryTx) GetPositionForUpdate(_ context.Context, cropID int64, grade string) (inventory.Lookup, error) {
	p, ok := t.store.state.positions[positionKey(cropID, grade)]
	if !ok {
		return inventory.NotFound(cropID, grade), nil
	}
	return inventory.Found(p), nil
}

func (t *memoryTx) UpsertPosition(_ context.Context, p inventory.Position) error {
	t.store.state.positions[positionKey(p.CropID, p.Grade)] = p
	return nil
}

func (t *memoryTx) InsertMovement(_ context.Context, m inventory.StockMovement) (int64, error) {
	m.ID = t.id()
	t.store.state.movements = append(t.store.state.movements, m)
	return m.ID, nil
}

func (t *memoryTx) LockParty(_ context.Context, partyID int64) (decimal.Decimal, error) {
	balance, ok := t.store.state.balances[partyID]
	if !ok {
		return decimal.Zero, ledger.ErrPartyNotFound
	}
	return balance, nil
}

func (t *memoryTx) sorted(partyID int64, keep func(ledger.Entry) bool) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range t.store.state.entries {
		if e.PartyID == partyID && keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *memoryTx) PriorEntry(_ context.Context, partyID int64, at time.Time) (ledger.Entry, bool, error) {
	prior := t.sorted(partyID, func(e ledger.Entry) bool { return !e.TransactionDate.After(at) })
	if len(prior) == 0 {
		return ledger.Entry{}, false, nil
	}
	return prior[len(prior)-1], true, nil
}

func (t *memoryTx) InsertEntry(_ context.Context, e ledger.Entry) (ledger.Entry, error) {
	e.ID = t.id()
	e.CreatedAt = time.Now()
	t.store.state.entries = append(t.store.state.entries, e)
	return e, nil
}

func (t *memoryTx) EntriesAfter(_ context.Context, partyID int64, at time.Time) ([]ledger.Entry, error) {
	return t.sorted(partyID, func(e ledger.Entry) bool { return e.TransactionDate.After(at) }), nil
}

func (t *memoryTx) PartyEntries(_ context.Context, partyID int64) ([]ledger.Entry, error) {
	return t.sorted(partyID, func(ledger.Entry) bool { return true }), nil
}

func (t *memoryTx) UpdateEntryBalance(_ context.Context, entryID int64, balance decimal.Decimal) error {
	for i := range t.store.state.entries {
		if t.store.state.entries[i].ID == entryID {
			t.store.state.entries[i].Balance = balance
			return nil
		}
	}
	return ledger.ErrPartyNotFound
}

func (t *memoryTx) SetPartyBalance(_ context.Context, partyID int64, balance decimal.Decimal) error {
	t.store.state.balances[partyID] = balance
	return nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: map[string]bool{}}
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+":"+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+":"+key)
	return nil
}

type auditRecorder struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *auditRecorder) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditRecorder) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type countingCache struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
