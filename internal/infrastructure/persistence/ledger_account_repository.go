package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxPageSize = 500

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account within a tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds an account and locks its row with SELECT ... FOR UPDATE.
// Only meaningful inside a transaction.
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormAccountRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, classifyError(err, shared.ErrAccountNotFound)
	}
	return model.ToDomain(), nil
}

// FindAll lists a tenant's accounts ordered by name
func (r *GormAccountRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) ([]ledger.Account, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx), tenantID, filter).Count(&total).Error; err != nil {
		return nil, 0, classifyError(err, nil)
	}

	var rows []models.AccountModel
	query := paginate(r.applyFilter(r.db.WithContext(ctx), tenantID, filter), filter.Page, filter.PageSize)
	if err := query.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, 0, classifyError(err, nil)
	}

	accounts := make([]ledger.Account, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, total, nil
}

func (r *GormAccountRepository) applyFilter(db *gorm.DB, tenantID uuid.UUID, filter ledger.AccountFilter) *gorm.DB {
	query := db.Model(&models.AccountModel{}).Where("tenant_id = ?", tenantID)
	if filter.Kind != "" {
		query = query.Where("kind = ?", string(filter.Kind))
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	return classifyError(r.db.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error, nil)
}

// Save writes the mutable columns of an existing account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("tenant_id = ? AND id = ?", account.TenantID, account.ID).
		Updates(map[string]any{
			"name":            account.Name,
			"current_balance": account.CurrentBalance,
			"is_active":       account.IsActive,
			"next_sequence":   account.NextSequence,
			"closed_at":       account.ClosedAt,
			"version":         account.Version,
			"updated_at":      account.UpdatedAt,
		})
	if result.Error != nil {
		return classifyError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

// paginate applies LIMIT/OFFSET. pageSize <= 0 returns every row.
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
