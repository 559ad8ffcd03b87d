package event

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured log line per ledger event
type AuditLogHandler struct {
	logger *zap.Logger
}

func NewAuditLogHandler(base *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: base.Named("ledger.audit")}
}

func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeAccountOpened,
		ledger.EventTypeAccountClosed,
		ledger.EventTypeAccountReopened,
		ledger.EventTypeLedgerEntryPosted,
		ledger.EventTypeLedgerEntryUpdated,
		ledger.EventTypeLedgerEntryDeleted,
		ledger.EventTypeAccountRecomputed,
	}
}

func (h *AuditLogHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	fields := append(logger.Fields(ctx),
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("account_id", ev.AggregateID().String()),
	)
	if logger.TenantID(ctx) == "" {
		fields = append(fields, zap.String("tenant_id", ev.TenantID().String()))
	}
	switch e := ev.(type) {
	case *ledger.LedgerEntryPostedEvent:
		fields = append(fields,
			zap.String("entry_id", e.EntryID.String()),
			zap.String("signed_amount", e.SignedAmount.String()),
			zap.String("account_balance", e.AccountBalance.String()),
			zap.Int("recomputed", e.Recomputed),
		)
	case *ledger.LedgerEntryDeletedEvent:
		fields = append(fields, zap.String("entry_id", e.EntryID.String()), zap.Int("recomputed", e.Recomputed))
	case *ledger.AccountRecomputedEvent:
		fields = append(fields, zap.Int("repaired", e.Repaired))
	}
	h.logger.Info("ledger event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
