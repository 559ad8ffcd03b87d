package dto

import (
	"fmt"
	"strings"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns UTC. A date-only value
// becomes the last microsecond of that day when endOfDay is set, midnight otherwise.
func ParseDate(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		if endOfDay {
			return t.Add(24*time.Hour - time.Microsecond), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD or RFC3339", s))
	}
	return t.UTC(), nil
}

func parseOptionalDate(s string, endOfDay bool) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s, endOfDay)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// OpenAccountRequest is the body of POST /accounts
// @Description Request body for opening a till or bank account
type OpenAccountRequest struct {
	Kind           string           `json:"kind" binding:"required,oneof=TILL BANK till bank" example:"TILL"`
	Name           string           `json:"name" binding:"required,min=1,max=100" example:"Front register"`
	Currency       string           `json:"currency" binding:"omitempty,len=3" example:"USD"`
	OpeningBalance *decimal.Decimal `json:"opening_balance" swaggertype:"string" example:"250.00"`
}

// ToCommand validates enums and converts to the service request
func (r OpenAccountRequest) ToCommand(createdBy uuid.UUID) (appledger.OpenAccountRequest, error) {
	kind, err := ledger.ParseAccountKind(r.Kind)
	if err != nil {
		return appledger.OpenAccountRequest{}, err
	}
	currency, err := valueobject.ParseCurrency(r.Currency)
	if err != nil {
		return appledger.OpenAccountRequest{}, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}
	cmd := appledger.OpenAccountRequest{
		Kind:      kind,
		Name:      r.Name,
		Currency:  currency,
		CreatedBy: createdBy,
	}
	if r.OpeningBalance != nil {
		cmd.OpeningBalance = *r.OpeningBalance
	}
	return cmd, nil
}

// PostEntryRequest is the body of POST /accounts/{id}/entries
// @Description Request body for posting a ledger entry
type PostEntryRequest struct {
	EntryType       string           `json:"entry_type" binding:"required,oneof=deposit withdrawal adjustment" example:"deposit"`
	Amount          *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"120.50"`
	TransactionDate string           `json:"transaction_date" binding:"required" example:"2026-03-14"`
	Description     string           `json:"description" binding:"max=500" example:"Cash sales"`
	ReferenceNumber string           `json:"reference_number" binding:"max=100" example:"Z-0314"`
}

// ToCommand converts the body to the service request
func (r PostEntryRequest) ToCommand(createdBy uuid.UUID, idempotencyKey string) (appledger.PostEntryRequest, error) {
	entryType, err := ledger.ParseEntryType(r.EntryType)
	if err != nil {
		return appledger.PostEntryRequest{}, err
	}
	date, err := ParseDate(r.TransactionDate, false)
	if err != nil {
		return appledger.PostEntryRequest{}, err
	}
	return appledger.PostEntryRequest{
		EntryType:       entryType,
		Amount:          *r.Amount,
		TransactionDate: date,
		Description:     r.Description,
		ReferenceNumber: r.ReferenceNumber,
		CreatedBy:       createdBy,
		IdempotencyKey:  idempotencyKey,
	}, nil
}

// UpdateEntryRequest is the body of PATCH /entries/{id}. Omitted fields are unchanged.
// @Description Partial update of a ledger entry
type UpdateEntryRequest struct {
	EntryType       *string          `json:"entry_type" binding:"omitempty,oneof=deposit withdrawal adjustment" example:"withdrawal"`
	Amount          *decimal.Decimal `json:"amount" swaggertype:"string" example:"80.00"`
	TransactionDate *string          `json:"transaction_date" example:"2026-03-12"`
	Description     *string          `json:"description" binding:"omitempty,max=500"`
	ReferenceNumber *string          `json:"reference_number" binding:"omitempty,max=100"`
}

// ToCommand converts the body to the service change set
func (r UpdateEntryRequest) ToCommand() (appledger.UpdateEntryRequest, error) {
	change := appledger.UpdateEntryRequest{
		Amount:          r.Amount,
		Description:     r.Description,
		ReferenceNumber: r.ReferenceNumber,
	}
	if r.EntryType != nil {
		t, err := ledger.ParseEntryType(*r.EntryType)
		if err != nil {
			return change, err
		}
		change.EntryType = &t
	}
	if r.TransactionDate != nil {
		d, err := ParseDate(*r.TransactionDate, false)
		if err != nil {
			return change, err
		}
		change.TransactionDate = &d
	}
	if change.IsEmpty() {
		return change, shared.NewDomainError(shared.CodeInvalidInput, "Update must change at least one field")
	}
	return change, nil
}

// EntryListQuery holds the query of GET /accounts/{id}/entries
type EntryListQuery struct {
	From     string `form:"from" example:"2026-03-01"`
	To       string `form:"to" example:"2026-03-31"`
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500" example:"50"`
}

// ToFilter converts the query; a date-only "to" includes that whole day
func (q EntryListQuery) ToFilter() (appledger.EntryListFilter, error) {
	from, err := parseOptionalDate(q.From, false)
	if err != nil {
		return appledger.EntryListFilter{}, err
	}
	to, err := parseOptionalDate(q.To, true)
	if err != nil {
		return appledger.EntryListFilter{}, err
	}
	return appledger.EntryListFilter{From: from, To: to, Page: q.Page, PageSize: q.PageSize}, nil
}

// StatementQuery holds the query of GET /accounts/{id}/statement
type StatementQuery struct {
	From string `form:"from" binding:"required" example:"2026-03-01"`
	To   string `form:"to" binding:"required" example:"2026-03-31"`
}

// Range returns the inclusive statement period
func (q StatementQuery) Range() (time.Time, time.Time, error) {
	from, err := ParseDate(q.From, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseDate(q.To, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
