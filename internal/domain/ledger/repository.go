package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountFilter narrows account listings
type AccountFilter struct {
	Kind     AccountKind
	IsActive *bool
	Page     int
	PageSize int
}

// EntryFilter narrows entry listings. Zero dates are open bounds; PageSize 0 returns every match.
type EntryFilter struct {
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// AccountRepository persists accounts
type AccountRepository interface {
	// FindByID returns ErrAccountNotFound when the account is missing or owned by another tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	// FindByIDForUpdate is FindByID taking an exclusive row lock held until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) ([]Account, int64, error)
	Create(ctx context.Context, account *Account) error
	Save(ctx context.Context, account *Account) error
}

// EntryRepository persists ledger entries. Every ordered read uses
// (transaction_date, sequence) ascending.
type EntryRepository interface {
	// FindByID returns ErrEntryNotFound when the entry is missing or owned by another tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*LedgerEntry, error)
	FindByIdempotencyKey(ctx context.Context, tenantID, accountID uuid.UUID, key string) (*LedgerEntry, error)
	// FindPredecessor returns the last entry strictly before pos, or nil if there is none
	FindPredecessor(ctx context.Context, tenantID, accountID uuid.UUID, pos Position) (*LedgerEntry, error)
	// FindFrom returns every entry at or after pos in order
	FindFrom(ctx context.Context, tenantID, accountID uuid.UUID, pos Position) ([]*LedgerEntry, error)
	FindAll(ctx context.Context, tenantID, accountID uuid.UUID, filter EntryFilter) ([]*LedgerEntry, int64, error)
	// SumUpTo sums signed amounts of entries dated at or before asOf
	SumUpTo(ctx context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error)
	Insert(ctx context.Context, entry *LedgerEntry) error
	Update(ctx context.Context, entry *LedgerEntry) error
	// UpdateRunningBalances writes only the running balance column of each entry
	UpdateRunningBalances(ctx context.Context, entries []*LedgerEntry) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
