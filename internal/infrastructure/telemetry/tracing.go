package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of ledger spans
const TracerName = "erp-ledger"

// Span attribute keys for ledger operations
const (
	SpanAttrTenantID       = "tenant_id"
	SpanAttrAccountID      = "account_id"
	SpanAttrAccountKind    = "account_kind"
	SpanAttrEntryID        = "entry_id"
	SpanAttrEntryType      = "entry_type"
	SpanAttrAmount         = "amount"
	SpanAttrRunningBalance = "running_balance"
	SpanAttrRecomputed     = "recomputed_entries"
)

// SpanOption is applied when a span starts
type SpanOption = trace.SpanStartOption

func WithAttribute(key string, value any) SpanOption {
	return trace.WithAttributes(attr(key, value))
}

func WithSpanKind(kind trace.SpanKind) SpanOption {
	return trace.WithSpanKind(kind)
}

// StartSpan starts an internal span on the global provider. The caller ends it.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// StartServiceSpan names the span <service>.<method>
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttributes takes alternating key, value arguments. Pairs whose key
// is not a string, and a trailing unpaired key, are ignored.
func SetAttributes(span trace.Span, kv ...any) {
	if span != nil {
		span.SetAttributes(attrs(kv)...)
	}
}

func SetAttribute(span trace.Span, key string, value any) {
	if span != nil {
		span.SetAttributes(attr(key, value))
	}
}

// AddEvent takes the same alternating key, value arguments as SetAttributes
func AddEvent(span trace.Span, name string, kv ...any) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(attrs(kv)...))
	}
}

// RecordError marks span failed with err; nil err is a no-op
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// TraceID is the hex trace id active on ctx, or ""
func TraceID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).TraceID(); id.IsValid() {
		return id.String()
	}
	return ""
}

// SpanID is the hex span id active on ctx, or ""
func SpanID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).SpanID(); id.IsValid() {
		return id.String()
	}
	return ""
}

func attrs(kv []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 1; i < len(kv); i += 2 {
		if key, ok := kv[i-1].(string); ok {
			out = append(out, attr(key, kv[i]))
		}
	}
	return out
}

func attr(key string, value any) attribute.KeyValue {
	k := attribute.Key(key)
	switch v := value.(type) {
	case string:
		return k.String(v)
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int64:
		return k.Int64(v)
	case float64:
		return k.Float64(v)
	case []string:
		return k.StringSlice(v)
	case fmt.Stringer:
		return k.String(v.String())
	}
	return k.String(fmt.Sprint(value))
}
