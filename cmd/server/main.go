package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/lock"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/tenant"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

//go:generate swag init -g main.go -d ./,../../internal/interfaces/http -o ../../docs --v3.1

//	@title			Ledger API
//	@version		1.0
//	@description	Multi-tenant till and bank ledger with running balances

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()
	var closers []func(context.Context) error

	// Telemetry
	otelProviders, err := telemetry.Setup(ctx, telemetry.Settings{
		ServiceName:     cfg.Telemetry.ServiceName,
		Endpoint:        cfg.Telemetry.CollectorEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		Traces:          cfg.Telemetry.Enabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		Metrics:         cfg.Telemetry.MetricsEnabled,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
		Logs:            cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	closers = append(closers, otelProviders.Shutdown)
	if otelProviders.LogsEnabled() {
		level, _ := logger.ParseLevel(cfg.Log.Level)
		log = otelProviders.BridgeLogger(log, level)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiler.Enabled,
		ServerAddress:     cfg.Profiler.ServerAddress,
		ApplicationName:   cfg.Profiler.ApplicationName,
		BasicAuthUser:     cfg.Profiler.BasicAuthUser,
		BasicAuthPassword: cfg.Profiler.BasicAuthPassword,
		LockContention:    true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	closers = append(closers, func(context.Context) error { return profiler.Stop() })
	if cfg.Profiler.SpanProfiles && profiler.IsEnabled() {
		otelProviders.EnableSpanProfiles()
	}

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("lock_strategy", cfg.Ledger.LockStrategy),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.ParseGormLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	db, err := persistence.Open(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithHook(telemetry.NewDBTracingPlugin(dbTracing, log).Register),
		persistence.WithHook(tenant.NewGuard().Register),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	closers = append(closers, func(context.Context) error { return db.Close() })
	log.Info("Database connected")

	checks := map[string]handler.Pinger{"database": db}

	// Redis is shared by the lock and the idempotency store when either needs it
	var redisClient *redis.Client
	if cfg.Ledger.LockStrategy == config.LockStrategyRedis || cfg.Idempotency.Backend == config.IdempotencyBackendRedis {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			if cfg.Ledger.LockStrategy == config.LockStrategyRedis {
				log.Fatal("Failed to connect to Redis", zap.Error(err))
			}
			log.Warn("Redis unavailable, idempotency store falls back to memory", zap.Error(err))
			redisClient = nil
		} else {
			closers = append(closers, func(context.Context) error { return redisClient.Close() })
			checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		}
	}

	locker, err := newLocker(cfg, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create account locker", zap.Error(err))
	}

	storeOpts := []cache.IdempotencyStoreFactoryOption{cache.WithLogger(log)}
	if redisClient != nil {
		storeOpts = append(storeOpts, cache.WithRedisClient(redisClient))
	}
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis, storeOpts...).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	if idempotencyStore != nil {
		closers = append(closers, func(context.Context) error { return idempotencyStore.Close() })
	}

	var meter metric.Meter
	opts := []appledger.Option{
		appledger.WithLocker(locker),
		appledger.WithIdempotencyStore(idempotencyStore, cfg.Idempotency.TTL),
		appledger.WithLogger(log),
		appledger.WithOperationTimeout(cfg.Ledger.OperationTimeout),
	}
	if otelProviders.MetricsEnabled() {
		meter = otelProviders.Meter(cfg.Telemetry.ServiceName)
		ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{Meter: meter, Logger: log})
		if err != nil {
			log.Fatal("Failed to create ledger metrics", zap.Error(err))
		}
		opts = append(opts, appledger.WithMetrics(ledgerMetrics))
	}

	ledgerService := appledger.NewLedgerService(
		persistence.NewGormAccountRepository(db.DB),
		persistence.NewGormEntryRepository(db.DB),
		persistence.NewGormTransactionScope(db.DB),
		opts...,
	)

	// Events: audit log in process, optionally Kafka downstream
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	closers = append(closers, eventBus.Stop)

	publishers := event.MultiPublisher{eventBus}
	if cfg.Kafka.Enabled {
		kafkaPublisher := event.NewKafkaPublisher(event.NewKafkaWriter(cfg.Kafka), nil, cfg.Kafka.Topic, log)
		closers = append(closers, func(context.Context) error { return kafkaPublisher.Close() })
		publishers = append(publishers, kafkaPublisher)
		log.Info("Publishing ledger events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}
	ledgerService.SetEventPublisher(publishers)

	// HTTP
	engine, err := router.NewEngine(router.EngineConfig{
		Production: cfg.App.IsProduction(),
		HTTP:       cfg.HTTP,
		Swagger:    cfg.Swagger,
		Auth: middleware.AuthConfig{
			JWTService: auth.NewJWTService(cfg.JWT),
			Enabled:    cfg.JWT.Enabled,
			Logger:     log,
		},
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     otelProviders.TracingEnabled(),
		},
		Meter:     meter,
		Profiling: profiler.IsEnabled(),
		Logger:    log,
		Ledger:    handler.NewLedgerHandler(ledgerService, log),
		System:    handler.NewSystemHandler(checks, log),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close in reverse order of construction
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](shutdownCtx); err != nil {
			log.Error("Shutdown step failed", zap.Error(err))
		}
	}
	log.Info("Server exited")
}

func newLocker(cfg *config.Config, client *redis.Client, log *zap.Logger) (appledger.AccountLocker, error) {
	switch cfg.Ledger.LockStrategy {
	case config.LockStrategyRedis:
		locker := lock.NewRedisAccountLocker(client, cfg.Lock, log)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := locker.Ping(pingCtx); err != nil {
			return nil, err
		}
		log.Info("Using Redis account lock", zap.Duration("ttl", cfg.Lock.TTL))
		return locker, nil
	case config.LockStrategyDB:
		log.Info("Using database row lock only")
		return appledger.RowLockOnly{}, nil
	default:
		log.Info("Using in-process account lock")
		return appledger.NewKeyedMutexLocker(), nil
	}
}
