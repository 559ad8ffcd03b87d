package telemetry

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profile label keys
const (
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelOperation = "operation"
	ProfilingLabelComponent = "component"
)

const maxLabelValue = 128

// per-request identifiers would explode the profile series
var unboundedLabels = []string{"tenant_id", "account_id", "entry_id", "request_id", "trace_id", "span_id"}

// WithProfilingLabels runs fn with pyroscope labels on its goroutine.
// Empty values and per-request identifiers are dropped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// LedgerOperationLabels tags a ledger engine operation
func LedgerOperationLabels(operation string) map[string]string {
	return map[string]string{
		ProfilingLabelOperation: operation,
		ProfilingLabelComponent: "ledger",
	}
}

// HTTPRequestLabels tags a request by matched route and method
func HTTPRequestLabels(route, method string) map[string]string {
	labels := map[string]string{}
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	return labels
}

// labelPairs flattens labels into sorted key, value pairs
func labelPairs(labels map[string]string) []string {
	var pairs []string
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		v := labels[k]
		key := labelKey(k)
		if key == "" || v == "" || slices.Contains(unboundedLabels, key) {
			continue
		}
		if len(v) > maxLabelValue {
			v = v[:maxLabelValue]
		}
		pairs = append(pairs, key, v)
	}
	return pairs
}

// labelKey lowercases k and keeps only [a-z0-9_], mapping space and dash to _
func labelKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-':
			return '_'
		}
		return -1
	}, k)
}
