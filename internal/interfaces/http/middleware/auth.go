package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// gin context keys set by Auth
const (
	JWTClaimsKey = "jwt_claims"
	TenantIDKey  = "tenant_id"
	UserIDKey    = "user_id"

	bearerPrefix = "Bearer "
)

// AuthConfig configures Auth
type AuthConfig struct {
	// JWTService validates bearer tokens; required when Enabled
	JWTService *auth.JWTService
	// Enabled false trusts X-Tenant-ID without a token (development only)
	Enabled bool
	Logger  *zap.Logger
}

// Auth resolves the calling tenant. With JWT enabled the tenant and user come
// from the token claims; otherwise from the X-Tenant-ID header.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		var tenantID, userID uuid.UUID

		if cfg.Enabled {
			header := c.GetHeader("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) || strings.TrimPrefix(header, bearerPrefix) == "" {
				abortAuth(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Missing or malformed bearer token")
				return
			}
			claims, err := cfg.JWTService.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				log.Debug("token rejected", zap.Error(err), zap.String("request_id", GetRequestID(c)))
				code := dto.ErrCodeUnauthorized
				if errors.Is(err, auth.ErrExpiredToken) {
					code = dto.ErrCodeTokenExpired
				}
				abortAuth(c, http.StatusUnauthorized, code, "Invalid token")
				return
			}
			// ValidateToken already checked both ids parse
			tenantID, _ = claims.TenantUUID()
			userID, _ = claims.UserUUID()
			c.Set(JWTClaimsKey, claims)
		} else {
			raw := c.GetHeader(TenantHeader)
			if raw == "" {
				abortAuth(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "X-Tenant-ID header is required")
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				abortAuth(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "X-Tenant-ID must be a UUID")
				return
			}
			tenantID = id
		}

		c.Set(TenantIDKey, tenantID)
		ctx := logger.WithTenantID(c.Request.Context(), tenantID.String())
		if userID != uuid.Nil {
			c.Set(UserIDKey, userID)
			ctx = logger.WithUserID(ctx, userID.String())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireScope rejects tokens lacking scope. Requests authenticated by
// header only (JWT disabled) carry no claims and pass.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := GetClaims(c); claims != nil && !claims.HasScope(scope) {
			abortAuth(c, http.StatusForbidden, dto.ErrCodeForbidden, "Token lacks scope "+scope)
			return
		}
		c.Next()
	}
}

// GetClaims returns the validated token claims, or nil
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetTenantID returns the tenant resolved by Auth
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// GetUserID returns the caller's user id, uuid.Nil when unknown
func GetUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func abortAuth(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message, GetRequestID(c)))
}
