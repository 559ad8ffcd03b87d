package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is the pooled PostgreSQL handle behind the ledger repositories
type Database struct {
	DB *gorm.DB
}

// Option customises Open
type Option func(*openOptions)

type openOptions struct {
	logger gormlogger.Interface
	hooks  []func(*gorm.DB) error
}

// WithGormLogger routes gorm's statement log through l
func WithGormLogger(l gormlogger.Interface) Option {
	return func(o *openOptions) { o.logger = l }
}

// WithHook runs fn on the new handle before it is pinged. Callback
// registration (tracing, tenant guard) goes here so that no statement
// escapes it.
func WithHook(fn func(*gorm.DB) error) Option {
	return func(o *openOptions) { o.hooks = append(o.hooks, fn) }
}

// Open connects to PostgreSQL and applies the pool limits from cfg
func Open(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	return open(postgres.Open(cfg.DSN()), cfg, opts...)
}

func open(dialector gorm.Dialector, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := openOptions{logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 o.logger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		DisableAutomaticPing:   true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, hook := range o.hooks {
		if err := hook(db); err != nil {
			return nil, fmt.Errorf("configure database: %w", err)
		}
	}

	d := &Database{DB: db}
	pool, err := d.pool()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return d, nil
}

// Ping satisfies the readiness check
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

func (d *Database) pool() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	return sqlDB, nil
}
