package handler

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService is the application surface the handlers call
type LedgerService interface {
	OpenAccount(ctx context.Context, tenantID uuid.UUID, req appledger.OpenAccountRequest) (*appledger.AccountResponse, error)
	GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*appledger.AccountResponse, error)
	ListAccounts(ctx context.Context, tenantID uuid.UUID, filter appledger.AccountListFilter) ([]appledger.AccountResponse, int64, error)
	CloseAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*appledger.AccountResponse, error)
	ReopenAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*appledger.AccountResponse, error)
	PostEntry(ctx context.Context, tenantID, accountID uuid.UUID, req appledger.PostEntryRequest) (*appledger.EntryResponse, error)
	UpdateEntry(ctx context.Context, tenantID, entryID uuid.UUID, req appledger.UpdateEntryRequest) (*appledger.EntryResponse, error)
	DeleteEntry(ctx context.Context, tenantID, entryID uuid.UUID) error
	RecomputeAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*appledger.RecomputeResponse, error)
	GetEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*appledger.EntryResponse, error)
	ListEntries(ctx context.Context, tenantID, accountID uuid.UUID, filter appledger.EntryListFilter) ([]appledger.EntryResponse, int64, error)
	GetRunningBalanceAt(ctx context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (*appledger.BalanceResponse, error)
	GetStatement(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) (*appledger.StatementResponse, error)
}

var _ LedgerService = (*appledger.LedgerService)(nil)

// Default page size for listings when the caller sends none
const defaultPageSize = 50

// LedgerHandler handles the account and entry endpoints
type LedgerHandler struct {
	BaseHandler
	service LedgerService
	now     func() time.Time
}

// NewLedgerHandler creates a LedgerHandler
func NewLedgerHandler(service LedgerService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: BaseHandler{logger: logger},
		service:     service,
		now:         time.Now,
	}
}

// OpenAccount godoc
// @ID           openAccount
// @Summary      Open an account
// @Description  Open a till or bank account with an opening balance
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        request body dto.OpenAccountRequest true "Account"
// @Success      201 {object} APIResponse[appledger.AccountResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      503 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts [post]
func (h *LedgerHandler) OpenAccount(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	cmd, err := req.ToCommand(middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	account, err := h.service.OpenAccount(c.Request.Context(), tenantID, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// ListAccounts godoc
// @ID           listAccounts
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        kind query string false "Account kind" Enums(TILL, BANK)
// @Param        is_active query bool false "Filter by active state"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(50) maximum(500)
// @Success      200 {object} APIResponse[[]appledger.AccountResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts [get]
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter appledger.AccountListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	page, pageSize := pagination(filter.Page, filter.PageSize)
	filter.Page, filter.PageSize = page, pageSize

	accounts, total, err := h.service.ListAccounts(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, accounts, total, page, pageSize)
}

// GetAccount godoc
// @ID           getAccount
// @Summary      Get an account
// @Tags         accounts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[appledger.AccountResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id} [get]
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	tenantID, accountID, ok := h.scopedID(c)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// CloseAccount godoc
// @ID           closeAccount
// @Summary      Close an account
// @Description  A closed account only accepts adjustments
// @Tags         accounts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[appledger.AccountResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/close [post]
func (h *LedgerHandler) CloseAccount(c *gin.Context) {
	tenantID, accountID, ok := h.scopedID(c)
	if !ok {
		return
	}
	account, err := h.service.CloseAccount(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// ReopenAccount godoc
// @ID           reopenAccount
// @Summary      Reopen a closed account
// @Tags         accounts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[appledger.AccountResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/reopen [post]
func (h *LedgerHandler) ReopenAccount(c *gin.Context) {
	tenantID, accountID, ok := h.scopedID(c)
	if !ok {
		return
	}
	account, err := h.service.ReopenAccount(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// PostEntry godoc
// @ID           postEntry
// @Summary      Post a ledger entry
// @Description  Posts a deposit, withdrawal or adjustment at any date and returns its running balance.
// @Description  Retrying with the same Idempotency-Key returns the original entry.
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        Idempotency-Key header string false "Retry key"
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body dto.PostEntryRequest true "Entry"
// @Success      201 {object} APIResponse[appledger.EntryResponse]
// @Success      200 {object} APIResponse[appledger.EntryResponse] "Idempotent replay"
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      503 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/entries [post]
func (h *LedgerHandler) PostEntry(c *gin.Context) {
	tenantID, accountID, ok := h.scopedID(c)
	if !ok {
		return
	}
	var req dto.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	key := c.GetHeader(middleware.IdempotencyKeyHeader)
	if len(key) > ledger.MaxIdempotencyKeyLength {
		h.BadRequest(c, fmt.Sprintf("Idempotency-Key must be at most %d characters", ledger.MaxIdempotencyKeyLength))
		return
	}
	cmd, err := req.ToCommand(middleware.GetUserID(c), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	entry, err := h.service.PostEntry(c.Request.Context(), tenantID, accountID, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if entry.Replayed {
		h.Success(c, entry)
		return
	}
	h.Created(c, entry)
}

// ListEntries godoc
// @ID           listEntries
// @Summary      List entries of an account
// @Description  Entries in ledger order with their running balances
// @Tags         entries
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Account ID" format(uuid)
// @Param        from query string false "Earliest transaction date (inclusive)"
// @Param        to query string false "Latest transaction date (inclusive)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(50) maximum(500)
// @Success      200 {object} APIResponse[[]appledger.EntryResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/entries [get]
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	tenantID, accountID, ok := h.scopedID(c)
	if !ok {
		return
	}
	var query dto.EntryListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filter.Page, filter.PageSize = pagination(filter.Page, filter.PageSize)

	entries, total, err := h.service.ListEntries(c.Request.Context(), tenantID, accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}

// GetBalance godoc
// @ID           getBalance
// @Summary      Running balance at a point in time
// @Description  Balance after every entry dated at or before as_of. A date-only as_of covers that whole day.
// @Tags         accounts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Account ID" format(uuid)
// @Param        as_of query string false "Point in time, defaults to now"
// @Success      200 {object} APIResponse[appledger.BalanceResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/balance [get]
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	tenantID, accountID, ok := h.scopedID(c)
	if !ok {
		return
	}
	asOf := h.now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		t, err := dto.ParseDate(raw, true)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		asOf = t
	}
	balance, err := h.service.GetRunningBalanceAt(c.Request.Context(), tenantID, accountID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// GetStatement godoc
// @ID           getStatement
// @Summary      Account statement
// @Description  Opening and closing balance of a period with the entries in between
// @Tags         accounts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Account ID" format(uuid)
// @Param        from query string true "Period start (inclusive)"
// @Param        to query string true "Period end (inclusive)"
// @Success      200 {object} APIResponse[appledger.StatementResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/statement [get]
func (h *LedgerHandler) GetStatement(c *gin.Context) {
	tenantID, accountID, ok := h.scopedID(c)
	if !ok {
		return
	}
	var query dto.StatementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	from, to, err := query.Range()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	statement, err := h.service.GetStatement(c.Request.Context(), tenantID, accountID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statement)
}

// RecomputeAccount godoc
// @ID           recomputeAccount
// @Summary      Recompute running balances
// @Description  Walks every entry of the account, repairs drifted running balances and the cached balance
// @Tags         accounts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[appledger.RecomputeResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/recompute [post]
func (h *LedgerHandler) RecomputeAccount(c *gin.Context) {
	tenantID, accountID, ok := h.scopedID(c)
	if !ok {
		return
	}
	result, err := h.service.RecomputeAccount(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetEntry godoc
// @ID           getEntry
// @Summary      Get an entry
// @Tags         entries
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} APIResponse[appledger.EntryResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /entries/{id} [get]
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	tenantID, entryID, ok := h.scopedID(c)
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(c.Request.Context(), tenantID, entryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// UpdateEntry godoc
// @ID           updateEntry
// @Summary      Amend an entry
// @Description  Changes any of date, type, amount, description or reference; balances after the change are recomputed
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Entry ID" format(uuid)
// @Param        request body dto.UpdateEntryRequest true "Changed fields"
// @Success      200 {object} APIResponse[appledger.EntryResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /entries/{id} [patch]
func (h *LedgerHandler) UpdateEntry(c *gin.Context) {
	tenantID, entryID, ok := h.scopedID(c)
	if !ok {
		return
	}
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	change, err := req.ToCommand()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	entry, err := h.service.UpdateEntry(c.Request.Context(), tenantID, entryID, change)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// DeleteEntry godoc
// @ID           deleteEntry
// @Summary      Delete an entry
// @Description  Removes the entry and recomputes every later running balance
// @Tags         entries
// @Param        X-Tenant-ID header string false "Tenant ID (when JWT auth is disabled)"
// @Param        id path string true "Entry ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /entries/{id} [delete]
func (h *LedgerHandler) DeleteEntry(c *gin.Context) {
	tenantID, entryID, ok := h.scopedID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteEntry(c.Request.Context(), tenantID, entryID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// scopedID resolves the tenant and the :id path parameter
func (h *LedgerHandler) scopedID(c *gin.Context) (tenantID, id uuid.UUID, ok bool) {
	if tenantID, ok = h.tenant(c); !ok {
		return
	}
	id, ok = h.pathID(c, "id")
	return
}

func pagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}
