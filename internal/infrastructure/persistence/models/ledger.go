package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the Account aggregate root.
type AccountModel struct {
	TenantAggregateModel
	Kind           string          `gorm:"type:varchar(10);not null;index:idx_ledger_account_tenant_kind,priority:2"`
	Name           string          `gorm:"type:varchar(200);not null"`
	Currency       string          `gorm:"type:varchar(3);not null;default:'USD'"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	IsActive       bool            `gorm:"not null;default:true"`
	NextSequence   int64           `gorm:"not null;default:1"`
	ClosedAt       *time.Time
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "ledger_accounts"
}

// ToDomain converts the persistence model to a domain Account.
func (m *AccountModel) ToDomain() *ledger.Account {
	a := &ledger.Account{
		Kind:           ledger.AccountKind(m.Kind),
		Name:           m.Name,
		Currency:       valueobject.Currency(m.Currency),
		OpeningBalance: m.OpeningBalance,
		CurrentBalance: m.CurrentBalance,
		IsActive:       m.IsActive,
		NextSequence:   m.NextSequence,
		ClosedAt:       utcPtr(m.ClosedAt),
	}
	m.toAggregate(&a.TenantAggregateRoot)
	return a
}

// FromDomain populates the persistence model from a domain Account.
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.fromAggregate(a.TenantAggregateRoot)
	m.Kind = string(a.Kind)
	m.Name = a.Name
	m.Currency = string(a.Currency)
	m.OpeningBalance = a.OpeningBalance
	m.CurrentBalance = a.CurrentBalance
	m.IsActive = a.IsActive
	m.NextSequence = a.NextSequence
	m.ClosedAt = a.ClosedAt
}

// AccountModelFromDomain creates a new persistence model from a domain Account.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// LedgerEntryModel is the persistence model for LedgerEntry.
// idx_ledger_entry_position serves every ordered suffix and predecessor read.
type LedgerEntryModel struct {
	BaseModel
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_entry_position,priority:1;uniqueIndex:idx_ledger_entry_idempotency,priority:1"`
	AccountID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_entry_position,priority:2;uniqueIndex:idx_ledger_entry_idempotency,priority:2"`
	TransactionDate time.Time       `gorm:"not null;index:idx_ledger_entry_position,priority:3"`
	Sequence        int64           `gorm:"not null;index:idx_ledger_entry_position,priority:4"`
	EntryType       string          `gorm:"type:varchar(20);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	SignedAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	RunningBalance  decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Description     string          `gorm:"type:varchar(500)"`
	ReferenceNumber string          `gorm:"type:varchar(100)"`
	CreatedBy       *uuid.UUID      `gorm:"type:uuid"`
	// nil rather than "" so the unique index ignores entries posted without a key
	IdempotencyKey *string `gorm:"type:varchar(128);uniqueIndex:idx_ledger_entry_idempotency,priority:3"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain LedgerEntry.
func (m *LedgerEntryModel) ToDomain() *ledger.LedgerEntry {
	e := &ledger.LedgerEntry{
		BaseEntity:      m.toEntity(),
		TenantID:        m.TenantID,
		AccountID:       m.AccountID,
		TransactionDate: m.TransactionDate.UTC(),
		Sequence:        m.Sequence,
		EntryType:       ledger.EntryType(m.EntryType),
		Amount:          m.Amount,
		SignedAmount:    m.SignedAmount,
		RunningBalance:  m.RunningBalance,
		Description:     m.Description,
		ReferenceNumber: m.ReferenceNumber,
		CreatedBy:       m.CreatedBy,
	}
	if m.IdempotencyKey != nil {
		e.IdempotencyKey = *m.IdempotencyKey
	}
	return e
}

// FromDomain populates the persistence model from a domain LedgerEntry.
func (m *LedgerEntryModel) FromDomain(e *ledger.LedgerEntry) {
	m.fromEntity(e.BaseEntity)
	m.TenantID = e.TenantID
	m.AccountID = e.AccountID
	m.TransactionDate = e.TransactionDate
	m.Sequence = e.Sequence
	m.EntryType = string(e.EntryType)
	m.Amount = e.Amount
	m.SignedAmount = e.SignedAmount
	m.RunningBalance = e.RunningBalance
	m.Description = e.Description
	m.ReferenceNumber = e.ReferenceNumber
	m.CreatedBy = e.CreatedBy
	m.IdempotencyKey = nil
	if e.IdempotencyKey != "" {
		key := e.IdempotencyKey
		m.IdempotencyKey = &key
	}
}

// LedgerEntryModelFromDomain creates a new persistence model from a domain LedgerEntry.
func LedgerEntryModelFromDomain(e *ledger.LedgerEntry) *LedgerEntryModel {
	m := &LedgerEntryModel{}
	m.FromDomain(e)
	return m
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
