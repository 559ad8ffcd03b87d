package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap/zaptest"
)

// stubLedger answers GetAccount for any id and records the tenant; every
// other operation reports not found.
type stubLedger struct {
	handler.LedgerService
	lastTenant uuid.UUID
}

func (s *stubLedger) GetAccount(_ context.Context, tenantID, accountID uuid.UUID) (*appledger.AccountResponse, error) {
	s.lastTenant = tenantID
	return &appledger.AccountResponse{ID: accountID, TenantID: tenantID, Kind: ledger.AccountKindBank.String()}, nil
}

func (s *stubLedger) CloseAccount(context.Context, uuid.UUID, uuid.UUID) (*appledger.AccountResponse, error) {
	return nil, shared.ErrAccountNotFound
}

func newTestEngine(t *testing.T, jwtSvc *auth.JWTService) (*gin.Engine, *stubLedger) {
	t.Helper()
	svc := &stubLedger{}
	log := zaptest.NewLogger(t)
	engine, err := NewEngine(EngineConfig{
		HTTP: config.HTTPConfig{
			MaxBodySize:      1 << 20,
			CORSAllowMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		},
		Swagger: config.SwaggerConfig{Enabled: false},
		Auth:    middleware.AuthConfig{JWTService: jwtSvc, Enabled: true, Logger: log},
		Meter:   sdkmetric.NewMeterProvider().Meter("test"),
		Logger:  log,
		Ledger:  handler.NewLedgerHandler(svc, log),
		System:  handler.NewSystemHandler(nil, log),
	})
	require.NoError(t, err)
	return engine, svc
}

func TestNewEngine(t *testing.T) {
	jwtSvc := auth.NewJWTService(config.JWTConfig{
		Secret:  "engine-test-secret-with-enough-length",
		Issuer:  "ledger",
		TTL:     time.Hour,
		Enabled: true,
	})
	engine, svc := newTestEngine(t, jwtSvc)
	tenantID := uuid.New()
	readToken, _, err := jwtSvc.GenerateToken(tenantID, uuid.New(), auth.ScopeLedgerRead)
	require.NoError(t, err)

	serve := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	t.Run("health is public", func(t *testing.T) {
		w := serve(http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("swagger hidden when disabled", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, serve(http.MethodGet, "/swagger/index.html", "").Code)
	})

	t.Run("api requires a token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), "").Code)
	})

	t.Run("read token reads with its tenant", func(t *testing.T) {
		w := serve(http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), readToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tenantID, svc.lastTenant)
		assert.True(t, strings.Contains(w.Body.String(), `"kind":"BANK"`))
	})

	t.Run("read token cannot mutate", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, serve(http.MethodPost, "/api/v1/accounts/"+uuid.NewString()+"/close", readToken).Code)
	})

	t.Run("write token reaches the service", func(t *testing.T) {
		writeToken, _, err := jwtSvc.GenerateToken(tenantID, uuid.Nil, auth.ScopeLedgerWrite)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, serve(http.MethodPost, "/api/v1/accounts/"+uuid.NewString()+"/close", writeToken).Code)
	})

	t.Run("every ledger route is mounted", func(t *testing.T) {
		mounted := map[string]bool{}
		for _, ri := range engine.Routes() {
			mounted[ri.Method+" "+ri.Path] = true
		}
		for _, route := range []string{
			"POST /api/v1/accounts",
			"GET /api/v1/accounts",
			"GET /api/v1/accounts/:id",
			"POST /api/v1/accounts/:id/close",
			"POST /api/v1/accounts/:id/reopen",
			"POST /api/v1/accounts/:id/entries",
			"GET /api/v1/accounts/:id/entries",
			"GET /api/v1/accounts/:id/balance",
			"GET /api/v1/accounts/:id/statement",
			"POST /api/v1/accounts/:id/recompute",
			"GET /api/v1/entries/:id",
			"PATCH /api/v1/entries/:id",
			"DELETE /api/v1/entries/:id",
			"GET /health",
			"GET /ready",
		} {
			assert.True(t, mounted[route], route)
		}
	})
}
