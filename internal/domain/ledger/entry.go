package ledger

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType is the semantic type of a ledger entry
type EntryType string

const (
	// EntryTypeDeposit is an inflow; the amount is added
	EntryTypeDeposit EntryType = "deposit"
	// EntryTypeWithdrawal is an outflow; the amount is subtracted
	EntryTypeWithdrawal EntryType = "withdrawal"
	// EntryTypeAdjustment carries an explicit signed amount
	EntryTypeAdjustment EntryType = "adjustment"
)

// String returns the string representation of EntryType
func (t EntryType) String() string {
	return string(t)
}

// IsValid returns true if the entry type is known
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeDeposit, EntryTypeWithdrawal, EntryTypeAdjustment:
		return true
	}
	return false
}

// ParseEntryType parses a type case-insensitively
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Entry type must be deposit, withdrawal or adjustment")
	}
	return t, nil
}

// AmountScale is the number of fractional digits every stored amount and
// balance keeps (DECIMAL(20,4)).
const AmountScale = 4

// amountLimit is the first magnitude that no longer fits DECIMAL(20,4)
var amountLimit = decimal.New(1, 20-AmountScale)

var (
	errAmountScale    = shared.NewDomainError(shared.CodeInvalidAmount, "Amount cannot have more than 4 decimal places")
	errAmountRange    = shared.NewDomainError(shared.CodeInvalidAmount, "Amount magnitude must be below 10^16")
	errBalanceOverrun = shared.NewDomainError(shared.CodeInvalidAmount, "Resulting balance magnitude must be below 10^16")
)

// CheckAmount rejects values the store cannot hold exactly. Amounts are never
// rounded, so sums of stored amounts always equal stored balances.
func CheckAmount(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return errAmountScale
	}
	if amount.Abs().GreaterThanOrEqual(amountLimit) {
		return errAmountRange
	}
	return nil
}

// CheckBalance reports a running or closing balance that would overflow storage
func CheckBalance(balance decimal.Decimal) error {
	if balance.Abs().GreaterThanOrEqual(amountLimit) {
		return errBalanceOverrun
	}
	return nil
}

// SignedAmount normalizes an amount for the given type into the value added to the balance.
// Deposits and withdrawals take a non-negative magnitude; adjustments are taken as signed.
func SignedAmount(t EntryType, amount decimal.Decimal) (decimal.Decimal, error) {
	if t.IsValid() {
		if err := CheckAmount(amount); err != nil {
			return decimal.Zero, err
		}
	}
	switch t {
	case EntryTypeDeposit:
		if amount.IsNegative() {
			return decimal.Zero, shared.ErrInvalidAmount
		}
		return amount, nil
	case EntryTypeWithdrawal:
		if amount.IsNegative() {
			return decimal.Zero, shared.ErrInvalidAmount
		}
		return amount.Neg(), nil
	case EntryTypeAdjustment:
		return amount, nil
	}
	return decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput, "Entry type must be deposit, withdrawal or adjustment")
}

// NormalizeDate converts to UTC at microsecond precision, the resolution the store keeps.
func NormalizeDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// LedgerEntry is one dated, signed monetary movement against an account.
// RunningBalance is derived and owned by the engine; callers never supply it.
type LedgerEntry struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	AccountID       uuid.UUID
	TransactionDate time.Time
	Sequence        int64
	EntryType       EntryType
	Amount          decimal.Decimal // as supplied: magnitude for deposit/withdrawal, signed for adjustment
	SignedAmount    decimal.Decimal
	RunningBalance  decimal.Decimal
	Description     string
	ReferenceNumber string
	CreatedBy       *uuid.UUID
	IdempotencyKey  string
}

// NewLedgerEntry validates the input and builds an entry at the given sequence
func NewLedgerEntry(
	tenantID uuid.UUID,
	accountID uuid.UUID,
	sequence int64,
	entryType EntryType,
	amount decimal.Decimal,
	transactionDate time.Time,
) (*LedgerEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant ID cannot be empty")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account ID cannot be empty")
	}
	if transactionDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Transaction date is required")
	}
	signed, err := SignedAmount(entryType, amount)
	if err != nil {
		return nil, err
	}

	return &LedgerEntry{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		AccountID:       accountID,
		TransactionDate: NormalizeDate(transactionDate),
		Sequence:        sequence,
		EntryType:       entryType,
		Amount:          amount,
		SignedAmount:    signed,
	}, nil
}

// WithDescription sets the description
func (e *LedgerEntry) WithDescription(description string) *LedgerEntry {
	e.Description = description
	return e
}

// WithReference sets the reference number
func (e *LedgerEntry) WithReference(reference string) *LedgerEntry {
	e.ReferenceNumber = reference
	return e
}

// WithCreatedBy sets the user who posted the entry
func (e *LedgerEntry) WithCreatedBy(userID uuid.UUID) *LedgerEntry {
	if userID != uuid.Nil {
		e.CreatedBy = &userID
	}
	return e
}

// MaxIdempotencyKeyLength matches the idempotency_key column width
const MaxIdempotencyKeyLength = 128

// CheckIdempotencyKey rejects keys the entry row cannot store
func CheckIdempotencyKey(key string) error {
	if len(key) > MaxIdempotencyKeyLength {
		return shared.NewDomainError(shared.CodeInvalidInput, "Idempotency key cannot exceed 128 characters")
	}
	return nil
}

// WithIdempotencyKey records the client key the entry was posted under
func (e *LedgerEntry) WithIdempotencyKey(key string) *LedgerEntry {
	e.IdempotencyKey = key
	return e
}

// Position returns the entry's place in the chronological order
func (e *LedgerEntry) Position() Position {
	return Position{Date: e.TransactionDate, Sequence: e.Sequence}
}

// EntryChange lists the fields an update may touch. Nil means unchanged.
type EntryChange struct {
	TransactionDate *time.Time
	EntryType       *EntryType
	Amount          *decimal.Decimal
	Description     *string
	ReferenceNumber *string
}

// IsEmpty reports whether the change touches nothing
func (c EntryChange) IsEmpty() bool {
	return c.TransactionDate == nil && c.EntryType == nil && c.Amount == nil &&
		c.Description == nil && c.ReferenceNumber == nil
}

// Amend applies a change. The sequence is kept, so an entry moved to a date it
// shares with others is ordered by when it was first posted.
func (e *LedgerEntry) Amend(change EntryChange) error {
	entryType := e.EntryType
	if change.EntryType != nil {
		entryType = *change.EntryType
	}
	amount := e.Amount
	if change.Amount != nil {
		amount = *change.Amount
	}
	signed, err := SignedAmount(entryType, amount)
	if err != nil {
		return err
	}
	if change.TransactionDate != nil {
		if change.TransactionDate.IsZero() {
			return shared.NewDomainError(shared.CodeInvalidInput, "Transaction date is required")
		}
		e.TransactionDate = NormalizeDate(*change.TransactionDate)
	}
	e.EntryType = entryType
	e.Amount = amount
	e.SignedAmount = signed
	if change.Description != nil {
		e.Description = *change.Description
	}
	if change.ReferenceNumber != nil {
		e.ReferenceNumber = *change.ReferenceNumber
	}
	e.Touch()
	return nil
}
