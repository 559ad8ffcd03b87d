package persistence

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// chronological order; sequence breaks ties on the same date
	entryOrderAsc  = "transaction_date ASC, sequence ASC"
	entryOrderDesc = "transaction_date DESC, sequence DESC"

	atOrAfterPosition = "(transaction_date > ? OR (transaction_date = ? AND sequence >= ?))"
	beforePosition    = "(transaction_date < ? OR (transaction_date = ? AND sequence < ?))"
)

// GormEntryRepository implements ledger.EntryRepository using GORM
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

func (r *GormEntryRepository) accountScope(ctx context.Context, tenantID, accountID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID)
}

// FindByID finds an entry within a tenant
func (r *GormEntryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.LedgerEntry, error) {
	var model models.LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, classifyError(err, shared.ErrEntryNotFound)
	}
	return model.ToDomain(), nil
}

// FindByIdempotencyKey finds the entry previously posted with key
func (r *GormEntryRepository) FindByIdempotencyKey(ctx context.Context, tenantID, accountID uuid.UUID, key string) (*ledger.LedgerEntry, error) {
	var model models.LedgerEntryModel
	if err := r.accountScope(ctx, tenantID, accountID).
		Where("idempotency_key = ?", key).
		First(&model).Error; err != nil {
		return nil, classifyError(err, shared.ErrEntryNotFound)
	}
	return model.ToDomain(), nil
}

// FindPredecessor returns the last entry strictly before pos, or nil
func (r *GormEntryRepository) FindPredecessor(ctx context.Context, tenantID, accountID uuid.UUID, pos ledger.Position) (*ledger.LedgerEntry, error) {
	var rows []models.LedgerEntryModel
	if err := r.accountScope(ctx, tenantID, accountID).
		Where(beforePosition, pos.Date, pos.Date, pos.Sequence).
		Order(entryOrderDesc).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, classifyError(err, nil)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// FindFrom returns every entry at or after pos in chronological order
func (r *GormEntryRepository) FindFrom(ctx context.Context, tenantID, accountID uuid.UUID, pos ledger.Position) ([]*ledger.LedgerEntry, error) {
	var rows []models.LedgerEntryModel
	if err := r.accountScope(ctx, tenantID, accountID).
		Where(atOrAfterPosition, pos.Date, pos.Date, pos.Sequence).
		Order(entryOrderAsc).
		Find(&rows).Error; err != nil {
		return nil, classifyError(err, nil)
	}
	return toDomainEntries(rows), nil
}

// FindAll lists an account's entries in chronological order. To is inclusive.
func (r *GormEntryRepository) FindAll(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.EntryFilter) ([]*ledger.LedgerEntry, int64, error) {
	var total int64
	if err := r.applyFilter(ctx, tenantID, accountID, filter).Count(&total).Error; err != nil {
		return nil, 0, classifyError(err, nil)
	}

	var rows []models.LedgerEntryModel
	query := paginate(r.applyFilter(ctx, tenantID, accountID, filter), filter.Page, filter.PageSize)
	if err := query.Order(entryOrderAsc).Find(&rows).Error; err != nil {
		return nil, 0, classifyError(err, nil)
	}
	return toDomainEntries(rows), total, nil
}

func (r *GormEntryRepository) applyFilter(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.EntryFilter) *gorm.DB {
	query := r.accountScope(ctx, tenantID, accountID)
	if !filter.From.IsZero() {
		query = query.Where("transaction_date >= ?", ledger.NormalizeDate(filter.From))
	}
	if !filter.To.IsZero() {
		query = query.Where("transaction_date <= ?", ledger.NormalizeDate(filter.To))
	}
	return query
}

// SumUpTo sums signed amounts of entries dated at or before asOf
func (r *GormEntryRepository) SumUpTo(ctx context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.accountScope(ctx, tenantID, accountID).
		Select("COALESCE(SUM(signed_amount), 0) AS total").
		Where("transaction_date <= ?", ledger.NormalizeDate(asOf)).
		Scan(&result).Error; err != nil {
		return decimal.Zero, classifyError(err, nil)
	}
	return result.Total, nil
}

// Insert stores a new entry
func (r *GormEntryRepository) Insert(ctx context.Context, entry *ledger.LedgerEntry) error {
	return classifyError(r.db.WithContext(ctx).Create(models.LedgerEntryModelFromDomain(entry)).Error, nil)
}

// Update rewrites the editable and derived columns of an entry
func (r *GormEntryRepository) Update(ctx context.Context, entry *ledger.LedgerEntry) error {
	result := r.db.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Where("tenant_id = ? AND id = ?", entry.TenantID, entry.ID).
		Updates(map[string]any{
			"transaction_date": entry.TransactionDate,
			"entry_type":       string(entry.EntryType),
			"amount":           entry.Amount,
			"signed_amount":    entry.SignedAmount,
			"running_balance":  entry.RunningBalance,
			"description":      entry.Description,
			"reference_number": entry.ReferenceNumber,
			"updated_at":       entry.UpdatedAt,
		})
	if result.Error != nil {
		return classifyError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

// UpdateRunningBalances writes only running_balance, one statement per entry
func (r *GormEntryRepository) UpdateRunningBalances(ctx context.Context, entries []*ledger.LedgerEntry) error {
	db := r.db.WithContext(ctx)
	for _, e := range entries {
		if err := db.Model(&models.LedgerEntryModel{}).
			Where("tenant_id = ? AND id = ?", e.TenantID, e.ID).
			UpdateColumn("running_balance", e.RunningBalance).Error; err != nil {
			return classifyError(err, nil)
		}
	}
	return nil
}

// Delete removes an entry within a tenant
func (r *GormEntryRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.LedgerEntryModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return classifyError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

func toDomainEntries(rows []models.LedgerEntryModel) []*ledger.LedgerEntry {
	entries := make([]*ledger.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries
}

var _ ledger.EntryRepository = (*GormEntryRepository)(nil)
