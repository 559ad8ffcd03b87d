package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenAccountRequest opens a till or bank account
type OpenAccountRequest struct {
	Kind           ledger.AccountKind
	Name           string
	Currency       valueobject.Currency
	OpeningBalance decimal.Decimal
	CreatedBy      uuid.UUID
}

// PostEntryRequest posts one entry. Fields are already parsed and typed.
type PostEntryRequest struct {
	EntryType       ledger.EntryType
	Amount          decimal.Decimal
	TransactionDate time.Time
	Description     string
	ReferenceNumber string
	CreatedBy       uuid.UUID
	// IdempotencyKey makes retries of the same post return the original entry
	IdempotencyKey string
}

// UpdateEntryRequest amends an entry. Nil fields are left unchanged.
type UpdateEntryRequest = ledger.EntryChange

// AccountListFilter narrows account listings
type AccountListFilter struct {
	Kind     string `form:"kind" binding:"omitempty,oneof=TILL BANK till bank"`
	IsActive *bool  `form:"is_active"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// EntryListFilter narrows entry listings
type EntryListFilter struct {
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// AccountResponse is the read model of an account
type AccountResponse struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	Kind           string          `json:"kind"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToAccountResponse converts the domain account to its read model
func ToAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:             a.ID,
		TenantID:       a.TenantID,
		Kind:           a.Kind.String(),
		Name:           a.Name,
		Currency:       a.Currency.String(),
		OpeningBalance: a.OpeningBalance,
		CurrentBalance: a.CurrentBalance,
		IsActive:       a.IsActive,
		ClosedAt:       a.ClosedAt,
		Version:        a.Version,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// EntryResponse is the read model of a ledger entry
type EntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	AccountID       uuid.UUID       `json:"account_id"`
	TransactionDate time.Time       `json:"transaction_date"`
	Sequence        int64           `json:"sequence"`
	EntryType       string          `json:"entry_type"`
	Amount          decimal.Decimal `json:"amount"`
	SignedAmount    decimal.Decimal `json:"signed_amount"`
	RunningBalance  decimal.Decimal `json:"running_balance"`
	Description     string          `json:"description,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	CreatedBy       *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	// Replayed is set when an idempotent retry returned an existing entry
	Replayed bool `json:"replayed,omitempty"`
}

// ToEntryResponse converts the domain entry to its read model
func ToEntryResponse(e *ledger.LedgerEntry) EntryResponse {
	return EntryResponse{
		ID:              e.ID,
		AccountID:       e.AccountID,
		TransactionDate: e.TransactionDate,
		Sequence:        e.Sequence,
		EntryType:       e.EntryType.String(),
		Amount:          e.Amount,
		SignedAmount:    e.SignedAmount,
		RunningBalance:  e.RunningBalance,
		Description:     e.Description,
		ReferenceNumber: e.ReferenceNumber,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// ToEntryResponses converts a slice of entries
func ToEntryResponses(entries []*ledger.LedgerEntry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = ToEntryResponse(e)
	}
	return out
}

// BalanceResponse is a point-in-time balance
type BalanceResponse struct {
	AccountID uuid.UUID       `json:"account_id"`
	AsOf      time.Time       `json:"as_of"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
}

// StatementResponse lists the entries of a period with its opening and closing balances
type StatementResponse struct {
	AccountID      uuid.UUID       `json:"account_id"`
	Currency       string          `json:"currency"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	TotalInflow    decimal.Decimal `json:"total_inflow"`
	TotalOutflow   decimal.Decimal `json:"total_outflow"`
	Entries        []EntryResponse `json:"entries"`
}

// RecomputeResponse reports the outcome of a full recompute
type RecomputeResponse struct {
	AccountID       uuid.UUID       `json:"account_id"`
	Walked          int             `json:"walked"`
	Repaired        int             `json:"repaired"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	Balance         decimal.Decimal `json:"balance"`
}
