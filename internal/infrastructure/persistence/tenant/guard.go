// Package tenant guards ledger tables against cross-tenant access.
//
// The guard reads the tenant recorded on the statement context by the auth
// middleware. Reads, updates and deletes on tables with a tenant_id column
// that carry no tenant condition get one added; inserts whose tenant_id
// differs from the context tenant are rejected. Statements without a tenant
// on the context (migrations, maintenance jobs) pass through untouched.
package tenant

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultColumn = "tenant_id"

var (
	// ErrTenantRequired is returned in strict mode when the context has no tenant
	ErrTenantRequired = errors.New("tenant_id is required but not found in context")
	// ErrInvalidTenant is returned when the context tenant is not a UUID
	ErrInvalidTenant = errors.New("invalid tenant_id format")
	// ErrCrossTenantWrite is returned when a row is inserted for another tenant
	ErrCrossTenantWrite = errors.New("row tenant_id does not match request tenant")
)

// Scope filters a query to one tenant
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: DefaultColumn},
			Value:  tenantID,
		})
	}
}

// Guard registers the tenant callbacks on a gorm DB
type Guard struct {
	column   string
	required bool
}

// Option configures a Guard
type Option func(*Guard)

// WithColumn overrides the tenant column name
func WithColumn(name string) Option {
	return func(g *Guard) {
		if name != "" {
			g.column = name
		}
	}
}

// Strict makes statements on tenant tables fail when the context has no tenant
func Strict() Option {
	return func(g *Guard) { g.required = true }
}

// NewGuard creates a Guard
func NewGuard(opts ...Option) *Guard {
	g := &Guard{column: DefaultColumn}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register installs the callbacks ahead of gorm's own processors
func (g *Guard) Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:before_query", g.filter); err != nil {
		return fmt.Errorf("register tenant query callback: %w", err)
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:before_row", g.filter); err != nil {
		return fmt.Errorf("register tenant row callback: %w", err)
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:before_update", g.filter); err != nil {
		return fmt.Errorf("register tenant update callback: %w", err)
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:before_delete", g.filter); err != nil {
		return fmt.Errorf("register tenant delete callback: %w", err)
	}
	if err := cb.Create().Before("gorm:create").Register("tenant:before_create", g.checkCreate); err != nil {
		return fmt.Errorf("register tenant create callback: %w", err)
	}
	return nil
}

// contextTenant returns the tenant on the statement context, or "" when the
// statement is exempt from the guard
func (g *Guard) contextTenant(db *gorm.DB) (string, bool) {
	if db.Statement.Context == nil || db.Statement.Unscoped {
		return "", false
	}
	if db.Statement.Schema == nil || db.Statement.Schema.LookUpField(g.column) == nil {
		return "", false
	}

	tenantID := logger.TenantID(db.Statement.Context)
	if tenantID == "" {
		if g.required {
			_ = db.AddError(ErrTenantRequired)
		}
		return "", false
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		_ = db.AddError(ErrInvalidTenant)
		return "", false
	}
	return tenantID, true
}

func (g *Guard) filter(db *gorm.DB) {
	tenantID, ok := g.contextTenant(db)
	if !ok || g.hasTenantCondition(db) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: g.column},
				Value:  tenantID,
			},
		},
	})
}

func (g *Guard) checkCreate(db *gorm.DB) {
	tenantID, ok := g.contextTenant(db)
	if !ok {
		return
	}
	field := db.Statement.Schema.LookUpField(g.column)

	check := func(rv reflect.Value) {
		value, zero := field.ValueOf(db.Statement.Context, rv)
		if zero {
			return
		}
		if fmt.Sprint(value) != tenantID {
			_ = db.AddError(ErrCrossTenantWrite)
		}
	}

	rv := reflect.Indirect(db.Statement.ReflectValue)
	switch rv.Kind() {
	case reflect.Struct:
		check(rv)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			check(reflect.Indirect(rv.Index(i)))
		}
	}
}

func (g *Guard) hasTenantCondition(db *gorm.DB) bool {
	if sql := db.Statement.SQL.String(); sql != "" && strings.Contains(sql, g.column) {
		return true
	}

	whereClause, ok := db.Statement.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := whereClause.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if g.mentionsTenant(expr) {
			return true
		}
	}
	return false
}

func (g *Guard) mentionsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return g.isTenantColumn(e.Column)
	case clause.IN:
		return g.isTenantColumn(e.Column)
	case clause.Expr:
		return strings.Contains(e.SQL, g.column)
	case clause.NamedExpr:
		return strings.Contains(e.SQL, g.column)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if g.mentionsTenant(cond) {
				return true
			}
		}
	}
	// OR groups do not bound the tenant on their own
	return false
}

func (g *Guard) isTenantColumn(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == g.column
	case string:
		return c == g.column
	}
	return false
}
