package router

import (
	"fmt"

	_ "github.com/erp/ledger/docs"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig carries everything NewEngine wires together
type EngineConfig struct {
	Production bool
	HTTP       config.HTTPConfig
	Swagger    config.SwaggerConfig
	Auth       middleware.AuthConfig
	Tracing    middleware.TracingConfig
	// Meter records HTTP metrics; nil disables them
	Meter     metric.Meter
	Profiling bool
	Logger    *zap.Logger

	Ledger *handler.LedgerHandler
	System *handler.SystemHandler
}

// NewEngine builds the gin engine with the global middleware chain, the
// probes, the swagger UI and the authenticated /api/v1 routes.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	// Tracing runs before the logger so request logs carry the trace id
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Tracing)...)
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Meter != nil {
		httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, fmt.Errorf("http metrics: %w", err)
		}
		engine.Use(httpMetrics)
	}
	engine.Use(middleware.Profiling(cfg.Profiling))
	engine.Use(middleware.CORS(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.System != nil {
		engine.GET("/health", cfg.System.Health)
		engine.GET("/ready", cfg.System.Ready)
	}

	authMW := middleware.Auth(cfg.Auth)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, authMW),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	var resources []Resource
	if cfg.Ledger != nil {
		resources = LedgerResources(cfg.Ledger)
	}
	MountAPI(engine, []gin.HandlerFunc{authMW}, resources...)

	return engine, nil
}
