package telemetry

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics records ledger engine measurements
type LedgerMetrics struct {
	logger *zap.Logger

	mutationsTotal   *Counter
	conflictsTotal   *Counter
	mutationDuration *Histogram
	recomputeSize    *Histogram
	lockWait         *Histogram
}

// LedgerMetricsConfig holds dependencies for LedgerMetrics
type LedgerMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{logger: logger}
	var err error

	lm.mutationsTotal, err = NewCounter(cfg.Meter,
		"ledger_mutations_total",
		"Ledger mutations by operation and outcome",
		"{mutations}",
	)
	if err != nil {
		return nil, err
	}

	lm.conflictsTotal, err = NewCounter(cfg.Meter,
		"ledger_concurrency_conflicts_total",
		"Mutations rejected with a concurrency conflict",
		"{conflicts}",
	)
	if err != nil {
		return nil, err
	}

	lm.mutationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_mutation_duration_seconds",
		Description: "Wall time of a ledger mutation including lock wait",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	lm.recomputeSize, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_recomputed_entries",
		Description: "Entries whose running balance was rewritten per mutation",
		Unit:        "{entries}",
		Boundaries:  RecomputeSizeBuckets,
	})
	if err != nil {
		return nil, err
	}

	lm.lockWait, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_lock_wait_seconds",
		Description: "Time spent waiting for the per-account lock",
		Unit:        "s",
		Boundaries:  LockWaitBuckets,
	})
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// RecordMutation records one finished mutation
func (lm *LedgerMetrics) RecordMutation(ctx context.Context, operation string, recomputed int, elapsed time.Duration, err error) {
	op := AttrOperation.String(operation)

	outcome := "success"
	attrs := []attribute.KeyValue{op}
	if err != nil {
		outcome = "error"
		attrs = append(attrs, AttrErrorCode.String(errorCode(err)))
	}
	attrs = append(attrs, AttrOutcome.String(outcome))

	lm.mutationsTotal.Inc(ctx, attrs...)
	lm.mutationDuration.RecordDuration(ctx, elapsed, op, AttrOutcome.String(outcome))

	if err == nil {
		lm.recomputeSize.Record(ctx, float64(recomputed), op)
		return
	}
	if shared.ErrorCode(err) == shared.CodeConcurrencyConflict {
		lm.conflictsTotal.Inc(ctx, op)
	}
}

// RecordLockWait records time spent acquiring the account lock
func (lm *LedgerMetrics) RecordLockWait(ctx context.Context, operation string, waited time.Duration) {
	lm.lockWait.RecordDuration(ctx, waited, AttrOperation.String(operation))
}

// errorCode labels untyped errors as storage failures
func errorCode(err error) string {
	if code := shared.ErrorCode(err); code != "" {
		return code
	}
	return shared.CodeStorageFailure
}
