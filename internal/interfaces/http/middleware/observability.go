package middleware

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
)

// routeOf returns the matched route template; 404s share one series
func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

// HTTPMetrics counts requests and records latency per route and method,
// plus an in-flight gauge. Tenant ids are never labels.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	total, err := telemetry.NewCounter(meter, "http_server_request_total", "HTTP requests served", "{request}")
	if err != nil {
		return nil, err
	}
	latency, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	inflight, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		began := time.Now()
		inflight.Add(ctx, 1)
		defer inflight.Add(ctx, -1)

		c.Next()

		route := telemetry.AttrHTTPRoute.String(routeOf(c))
		method := telemetry.AttrHTTPMethod.String(c.Request.Method)
		total.Inc(ctx, route, method, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))
		latency.RecordDuration(ctx, time.Since(began), route, method)
	}, nil
}

// Profiling labels the handler goroutine with its route and method for
// pyroscope. Requests that match no route run unlabelled.
func Profiling(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if !enabled || route == "" {
			c.Next()
			return
		}
		labels := telemetry.HTTPRequestLabels(route, c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
