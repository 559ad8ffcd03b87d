package logger

import (
	"context"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	tenantIDKey
	userIDKey
)

// WithContext attaches l to ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request id on ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithTenantID records the tenant id on ctx
func WithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// WithUserID records the authenticated user id on ctx
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func stringValue(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// RequestID returns the request id recorded on ctx
func RequestID(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// TenantID returns the tenant id recorded on ctx
func TenantID(ctx context.Context) string { return stringValue(ctx, tenantIDKey) }

// UserID returns the user id recorded on ctx
func UserID(ctx context.Context) string { return stringValue(ctx, userIDKey) }

// Fields returns the correlation fields present on ctx: trace_id, span_id,
// request_id, tenant_id and user_id.
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)
	if id := telemetry.TraceID(ctx); id != "" {
		fields = append(fields, zap.String("trace_id", id), zap.String("span_id", telemetry.SpanID(ctx)))
	}
	for _, kv := range []struct {
		name string
		key  ctxKey
	}{
		{"request_id", requestIDKey},
		{"tenant_id", tenantIDKey},
		{"user_id", userIDKey},
	} {
		if v := stringValue(ctx, kv.key); v != "" {
			fields = append(fields, zap.String(kv.name, v))
		}
	}
	return fields
}

// ContextLogger logs with the correlation fields of its context.
//
//	logger.L(ctx).Info("entry posted", zap.String("entry_id", id))
type ContextLogger struct {
	ctx  context.Context
	base *zap.Logger
}

// L returns a ContextLogger over the logger attached to ctx
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, base: FromContext(ctx)}
}

// WithLogger returns a ContextLogger over base instead of the attached logger
func WithLogger(ctx context.Context, base *zap.Logger) *ContextLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, base: base}
}

// Zap returns the enriched zap logger
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.base.With(Fields(cl.ctx)...)
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.Zap().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.Zap().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.Zap().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.Zap().Error(msg, fields...) }
