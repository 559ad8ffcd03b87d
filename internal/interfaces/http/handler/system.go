package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// SystemHandler serves liveness and readiness probes
type SystemHandler struct {
	BaseHandler
	checks  map[string]Pinger
	timeout time.Duration
}

// NewSystemHandler creates a SystemHandler. checks maps a dependency name
// (database, redis) to its probe.
func NewSystemHandler(checks map[string]Pinger, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		BaseHandler: BaseHandler{logger: logger},
		checks:      checks,
		timeout:     2 * time.Second,
	}
}

// Health godoc
// @ID           health
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthData]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, HealthData{Status: "ok"})
}

// Ready godoc
// @ID           ready
// @Summary      Readiness probe
// @Description  Pings every backing store; 503 when any is unreachable
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthData]
// @Failure      503 {object} APIResponse[HealthData]
// @Router       /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	data := HealthData{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	healthy := true
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.log().Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			data.Checks[name] = "unavailable"
			healthy = false
			continue
		}
		data.Checks[name] = "ok"
	}

	if !healthy {
		data.Status = "degraded"
		resp := dto.NewSuccessResponse(data)
		resp.Success = false
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	h.Success(c, data)
}
