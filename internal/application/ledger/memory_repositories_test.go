package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memoryStore backs in-memory account and entry repositories for service tests.
// Values are copied in and out so callers never share state with the store.
type memoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]ledger.Account
	entries  map[uuid.UUID]ledger.LedgerEntry

	// failUpdateBalances makes UpdateRunningBalances fail when set
	failUpdateBalances error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts: make(map[uuid.UUID]ledger.Account),
		entries:  make(map[uuid.UUID]ledger.LedgerEntry),
	}
}

func (s *memoryStore) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(&memoryAccountRepo{s}, &memoryEntryRepo{s})
}

func (s *memoryStore) ordered(tenantID, accountID uuid.UUID) []*ledger.LedgerEntry {
	var out []*ledger.LedgerEntry
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.AccountID == accountID {
			c := e
			out = append(out, &c)
		}
	}
	ledger.SortEntries(out)
	return out
}

type memoryAccountRepo struct{ s *memoryStore }

func (r *memoryAccountRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok || a.TenantID != tenantID {
		return nil, shared.ErrAccountNotFound
	}
	return &a, nil
}

func (r *memoryAccountRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *memoryAccountRepo) FindAll(_ context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) ([]ledger.Account, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []ledger.Account
	for _, a := range r.s.accounts {
		if a.TenantID != tenantID {
			continue
		}
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *memoryAccountRepo) Create(_ context.Context, account *ledger.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *account
	stored.ClearEvents()
	r.s.accounts[account.ID] = stored
	return nil
}

func (r *memoryAccountRepo) Save(_ context.Context, account *ledger.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *account
	stored.ClearEvents()
	r.s.accounts[account.ID] = stored
	return nil
}

type memoryEntryRepo struct{ s *memoryStore }

func (r *memoryEntryRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*ledger.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || e.TenantID != tenantID {
		return nil, shared.ErrEntryNotFound
	}
	return &e, nil
}

func (r *memoryEntryRepo) FindByIdempotencyKey(_ context.Context, tenantID, accountID uuid.UUID, key string) (*ledger.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.TenantID == tenantID && e.AccountID == accountID && e.IdempotencyKey == key {
			c := e
			return &c, nil
		}
	}
	return nil, shared.ErrEntryNotFound
}

func (r *memoryEntryRepo) FindPredecessor(_ context.Context, tenantID, accountID uuid.UUID, pos ledger.Position) (*ledger.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var prev *ledger.LedgerEntry
	for _, e := range r.s.ordered(tenantID, accountID) {
		if !e.Position().Before(pos) {
			break
		}
		prev = e
	}
	return prev, nil
}

func (r *memoryEntryRepo) FindFrom(_ context.Context, tenantID, accountID uuid.UUID, pos ledger.Position) ([]*ledger.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.LedgerEntry
	for _, e := range r.s.ordered(tenantID, accountID) {
		if !e.Position().Before(pos) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEntryRepo) FindAll(_ context.Context, tenantID, accountID uuid.UUID, filter ledger.EntryFilter) ([]*ledger.LedgerEntry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.LedgerEntry
	for _, e := range r.s.ordered(tenantID, accountID) {
		if !filter.From.IsZero() && e.TransactionDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.TransactionDate.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	total := int64(len(out))
	if filter.PageSize > 0 {
		page := max(filter.Page, 1)
		start := min((page-1)*filter.PageSize, len(out))
		end := min(start+filter.PageSize, len(out))
		out = out[start:end]
	}
	return out, total, nil
}

func (r *memoryEntryRepo) SumUpTo(_ context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return ledger.BalanceAt(decimal.Zero, r.s.ordered(tenantID, accountID), asOf), nil
}

func (r *memoryEntryRepo) Insert(_ context.Context, entry *ledger.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.entries[entry.ID] = *entry
	return nil
}

func (r *memoryEntryRepo) Update(_ context.Context, entry *ledger.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.entries[entry.ID]; !ok {
		return shared.ErrEntryNotFound
	}
	r.s.entries[entry.ID] = *entry
	return nil
}

func (r *memoryEntryRepo) UpdateRunningBalances(_ context.Context, entries []*ledger.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failUpdateBalances != nil {
		return r.s.failUpdateBalances
	}
	for _, e := range entries {
		stored := r.s.entries[e.ID]
		stored.RunningBalance = e.RunningBalance
		r.s.entries[e.ID] = stored
	}
	return nil
}

func (r *memoryEntryRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || e.TenantID != tenantID {
		return shared.ErrEntryNotFound
	}
	delete(r.s.entries, id)
	return nil
}

var _ ledger.AccountRepository = (*memoryAccountRepo)(nil)
var _ ledger.EntryRepository = (*memoryEntryRepo)(nil)
