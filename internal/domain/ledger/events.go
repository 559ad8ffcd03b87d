package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeAccount = "Account"
)

// Event type constants
const (
	EventTypeAccountOpened      = "AccountOpened"
	EventTypeAccountClosed      = "AccountClosed"
	EventTypeAccountReopened    = "AccountReopened"
	EventTypeLedgerEntryPosted  = "LedgerEntryPosted"
	EventTypeLedgerEntryUpdated = "LedgerEntryUpdated"
	EventTypeLedgerEntryDeleted = "LedgerEntryDeleted"
	EventTypeAccountRecomputed  = "AccountRecomputed"
)

// AccountOpenedEvent is raised when an account is created
type AccountOpenedEvent struct {
	shared.EventMeta
	AccountID      uuid.UUID       `json:"account_id"`
	Kind           AccountKind     `json:"kind"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// NewAccountOpenedEvent creates a new AccountOpenedEvent
func NewAccountOpenedEvent(a *Account) *AccountOpenedEvent {
	return &AccountOpenedEvent{
		EventMeta: shared.NewEventMeta(EventTypeAccountOpened, AggregateTypeAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		Kind:            a.Kind,
		Name:            a.Name,
		Currency:        a.Currency.String(),
		OpeningBalance:  a.OpeningBalance,
	}
}

// AccountClosedEvent is raised when an account is closed
type AccountClosedEvent struct {
	shared.EventMeta
	AccountID    uuid.UUID       `json:"account_id"`
	FinalBalance decimal.Decimal `json:"final_balance"`
}

// NewAccountClosedEvent creates a new AccountClosedEvent
func NewAccountClosedEvent(a *Account) *AccountClosedEvent {
	return &AccountClosedEvent{
		EventMeta: shared.NewEventMeta(EventTypeAccountClosed, AggregateTypeAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		FinalBalance:    a.CurrentBalance,
	}
}

// AccountReopenedEvent is raised when a closed account is reactivated
type AccountReopenedEvent struct {
	shared.EventMeta
	AccountID uuid.UUID `json:"account_id"`
}

// NewAccountReopenedEvent creates a new AccountReopenedEvent
func NewAccountReopenedEvent(a *Account) *AccountReopenedEvent {
	return &AccountReopenedEvent{
		EventMeta: shared.NewEventMeta(EventTypeAccountReopened, AggregateTypeAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
	}
}

// LedgerEntryPostedEvent is raised after an entry is posted and balances are reflowed
type LedgerEntryPostedEvent struct {
	shared.EventMeta
	AccountID       uuid.UUID       `json:"account_id"`
	EntryID         uuid.UUID       `json:"entry_id"`
	EntryType       EntryType       `json:"entry_type"`
	SignedAmount    decimal.Decimal `json:"signed_amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	RunningBalance  decimal.Decimal `json:"running_balance"`
	AccountBalance  decimal.Decimal `json:"account_balance"`
	Recomputed      int             `json:"recomputed"`
}

// NewLedgerEntryPostedEvent creates a new LedgerEntryPostedEvent
func NewLedgerEntryPostedEvent(a *Account, e *LedgerEntry, recomputed int) *LedgerEntryPostedEvent {
	return &LedgerEntryPostedEvent{
		EventMeta: shared.NewEventMeta(EventTypeLedgerEntryPosted, AggregateTypeAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		EntryID:         e.ID,
		EntryType:       e.EntryType,
		SignedAmount:    e.SignedAmount,
		TransactionDate: e.TransactionDate,
		RunningBalance:  e.RunningBalance,
		AccountBalance:  a.CurrentBalance,
		Recomputed:      recomputed,
	}
}

// LedgerEntryUpdatedEvent is raised after an entry is amended and balances are reflowed
type LedgerEntryUpdatedEvent struct {
	shared.EventMeta
	AccountID          uuid.UUID       `json:"account_id"`
	EntryID            uuid.UUID       `json:"entry_id"`
	OldSignedAmount    decimal.Decimal `json:"old_signed_amount"`
	NewSignedAmount    decimal.Decimal `json:"new_signed_amount"`
	OldTransactionDate time.Time       `json:"old_transaction_date"`
	NewTransactionDate time.Time       `json:"new_transaction_date"`
	RunningBalance     decimal.Decimal `json:"running_balance"`
	AccountBalance     decimal.Decimal `json:"account_balance"`
	Recomputed         int             `json:"recomputed"`
}

// NewLedgerEntryUpdatedEvent creates a new LedgerEntryUpdatedEvent
func NewLedgerEntryUpdatedEvent(a *Account, before, after *LedgerEntry, recomputed int) *LedgerEntryUpdatedEvent {
	return &LedgerEntryUpdatedEvent{
		EventMeta:    shared.NewEventMeta(EventTypeLedgerEntryUpdated, AggregateTypeAccount, a.ID, a.TenantID),
		AccountID:          a.ID,
		EntryID:            after.ID,
		OldSignedAmount:    before.SignedAmount,
		NewSignedAmount:    after.SignedAmount,
		OldTransactionDate: before.TransactionDate,
		NewTransactionDate: after.TransactionDate,
		RunningBalance:     after.RunningBalance,
		AccountBalance:     a.CurrentBalance,
		Recomputed:         recomputed,
	}
}

// LedgerEntryDeletedEvent is raised after an entry is removed and balances are reflowed
type LedgerEntryDeletedEvent struct {
	shared.EventMeta
	AccountID      uuid.UUID       `json:"account_id"`
	EntryID        uuid.UUID       `json:"entry_id"`
	SignedAmount   decimal.Decimal `json:"signed_amount"`
	AccountBalance decimal.Decimal `json:"account_balance"`
	Recomputed     int             `json:"recomputed"`
}

// NewLedgerEntryDeletedEvent creates a new LedgerEntryDeletedEvent
func NewLedgerEntryDeletedEvent(a *Account, e *LedgerEntry, recomputed int) *LedgerEntryDeletedEvent {
	return &LedgerEntryDeletedEvent{
		EventMeta: shared.NewEventMeta(EventTypeLedgerEntryDeleted, AggregateTypeAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		EntryID:         e.ID,
		SignedAmount:    e.SignedAmount,
		AccountBalance:  a.CurrentBalance,
		Recomputed:      recomputed,
	}
}

// AccountRecomputedEvent is raised when a full recompute repaired drifted balances
type AccountRecomputedEvent struct {
	shared.EventMeta
	AccountID      uuid.UUID       `json:"account_id"`
	Repaired       int             `json:"repaired"`
	AccountBalance decimal.Decimal `json:"account_balance"`
}

// NewAccountRecomputedEvent creates a new AccountRecomputedEvent
func NewAccountRecomputedEvent(a *Account, repaired int) *AccountRecomputedEvent {
	return &AccountRecomputedEvent{
		EventMeta: shared.NewEventMeta(EventTypeAccountRecomputed, AggregateTypeAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		Repaired:        repaired,
		AccountBalance:  a.CurrentBalance,
	}
}
