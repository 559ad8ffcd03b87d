package ledger

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountKind identifies what kind of ledger an account keeps
type AccountKind string

const (
	// AccountKindTill is a cash drawer
	AccountKindTill AccountKind = "TILL"
	// AccountKindBank is a bank account
	AccountKindBank AccountKind = "BANK"
)

// String returns the string representation of AccountKind
func (k AccountKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is known
func (k AccountKind) IsValid() bool {
	switch k {
	case AccountKindTill, AccountKindBank:
		return true
	}
	return false
}

// ParseAccountKind parses a kind case-insensitively
func ParseAccountKind(s string) (AccountKind, error) {
	k := AccountKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Account kind must be TILL or BANK")
	}
	return k, nil
}

// Account owns an ordered sequence of ledger entries.
// CurrentBalance is a cache of the running balance of the chronologically last
// entry (or OpeningBalance when there are none) and is only changed by the engine.
type Account struct {
	shared.TenantAggregateRoot
	Kind           AccountKind
	Name           string
	Currency       valueobject.Currency
	OpeningBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	IsActive       bool
	NextSequence   int64
	ClosedAt       *time.Time
}

// NewAccount opens a new active account. The opening balance is fixed for the account's lifetime.
func NewAccount(
	tenantID uuid.UUID,
	kind AccountKind,
	name string,
	currency valueobject.Currency,
	openingBalance decimal.Decimal,
) (*Account, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account kind must be TILL or BANK")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account name cannot exceed 200 characters")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if err := CheckAmount(openingBalance); err != nil {
		return nil, err
	}

	a := &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		Name:                name,
		Currency:            currency,
		OpeningBalance:      openingBalance,
		CurrentBalance:      openingBalance,
		IsActive:            true,
		NextSequence:        1,
	}
	a.RecordEvent(NewAccountOpenedEvent(a))
	return a, nil
}

// AllocateSequence hands out the next per-account insertion counter.
// Sequences are never reused, even after entries are deleted.
func (a *Account) AllocateSequence() int64 {
	seq := a.NextSequence
	if seq < 1 {
		seq = 1
	}
	a.NextSequence = seq + 1
	return seq
}

// CheckAccepts returns ErrAccountInactive when a closed account is asked to take a non-adjustment entry.
func (a *Account) CheckAccepts(entryType EntryType) error {
	if !a.IsActive && entryType != EntryTypeAdjustment {
		return shared.ErrAccountInactive
	}
	return nil
}

// ApplyBalance stores the recomputed balance of the last entry
func (a *Account) ApplyBalance(balance decimal.Decimal) {
	if a.CurrentBalance.Equal(balance) {
		return
	}
	a.CurrentBalance = balance
	a.BumpVersion()
}

// Close deactivates the account. Only adjustment entries are accepted afterwards.
func (a *Account) Close() error {
	if !a.IsActive {
		return shared.NewDomainError(shared.CodeAccountInactive, "Account is already closed")
	}
	now := time.Now().UTC()
	a.IsActive = false
	a.ClosedAt = &now
	a.BumpVersion()
	a.RecordEvent(NewAccountClosedEvent(a))
	return nil
}

// Reopen reactivates a closed account
func (a *Account) Reopen() error {
	if a.IsActive {
		return shared.NewDomainError(shared.CodeInvalidInput, "Account is already active")
	}
	a.IsActive = true
	a.ClosedAt = nil
	a.BumpVersion()
	a.RecordEvent(NewAccountReopenedEvent(a))
	return nil
}

// FormattedBalance renders the current balance at the currency's scale, e.g. "USD 40.00"
func (a *Account) FormattedBalance() string {
	return a.Currency.Format(a.CurrentBalance)
}
