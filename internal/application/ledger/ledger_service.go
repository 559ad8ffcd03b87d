package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Operation names used for spans, metrics and profiling labels
const (
	OpOpenAccount   = "open_account"
	OpCloseAccount  = "close_account"
	OpReopenAccount = "reopen_account"
	OpPostEntry     = "post_entry"
	OpUpdateEntry   = "update_entry"
	OpDeleteEntry   = "delete_entry"
	OpRecompute     = "recompute_account"
)

const serviceName = "ledger"

// MetricsRecorder receives engine measurements
type MetricsRecorder interface {
	RecordMutation(ctx context.Context, operation string, recomputed int, elapsed time.Duration, err error)
	RecordLockWait(ctx context.Context, operation string, waited time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordMutation(context.Context, string, int, time.Duration, error) {}
func (noopMetrics) RecordLockWait(context.Context, string, time.Duration)             {}

// LedgerService is the ledger engine. It keeps every entry's running balance and
// the account's cached balance consistent across post, update and delete.
// Mutations of one account are serialized through the AccountLocker and the
// account row lock; each mutation is a single transaction.
type LedgerService struct {
	accountRepo    ledger.AccountRepository
	entryRepo      ledger.EntryRepository
	txScope        TransactionScope
	locker         AccountLocker
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	eventPublisher shared.EventPublisher
	metrics        MetricsRecorder
	logger         *zap.Logger
	opTimeout      time.Duration
}

// Option configures a LedgerService
type Option func(*LedgerService)

// WithLocker sets the account locker. Defaults to an in-process KeyedMutexLocker.
func WithLocker(locker AccountLocker) Option {
	return func(s *LedgerService) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithIdempotencyStore enables the idempotency-key fast path
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) Option {
	return func(s *LedgerService) {
		s.idempotency = store
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(s *LedgerService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOperationTimeout bounds lock wait plus transaction time of each mutation
func WithOperationTimeout(d time.Duration) Option {
	return func(s *LedgerService) {
		s.opTimeout = d
	}
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	accountRepo ledger.AccountRepository,
	entryRepo ledger.EntryRepository,
	txScope TransactionScope,
	opts ...Option,
) *LedgerService {
	s := &LedgerService{
		accountRepo:    accountRepo,
		entryRepo:      entryRepo,
		txScope:        txScope,
		locker:         NewKeyedMutexLocker(),
		idempotencyTTL: shared.DefaultIdempotencyTTL,
		metrics:        noopMetrics{},
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for domain events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// OpenAccount creates a new account with a fixed opening balance
func (s *LedgerService) OpenAccount(ctx context.Context, tenantID uuid.UUID, req OpenAccountRequest) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, OpOpenAccount)
	defer span.End()

	account, err := ledger.NewAccount(tenantID, req.Kind, req.Name, req.Currency, req.OpeningBalance)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.CreatedBy != uuid.Nil {
		account.SetCreatedBy(req.CreatedBy)
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		err = normalizeError(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrAccountID, account.ID.String(), telemetry.SpanAttrAccountKind, account.Kind.String())
	telemetry.SetOK(span)
	s.logger.Info("account opened",
		zap.String("tenant_id", tenantID.String()),
		zap.String("account_id", account.ID.String()),
		zap.String("kind", account.Kind.String()),
		zap.String("opening_balance", account.OpeningBalance.String()),
	)
	s.publishDomainEvents(ctx, account)

	resp := ToAccountResponse(account)
	return &resp, nil
}

// GetAccount returns an account by ID
func (s *LedgerService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, normalizeError(err)
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// ListAccounts returns a page of accounts
func (s *LedgerService) ListAccounts(ctx context.Context, tenantID uuid.UUID, filter AccountListFilter) ([]AccountResponse, int64, error) {
	domainFilter := ledger.AccountFilter{
		IsActive: filter.IsActive,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if filter.Kind != "" {
		kind, err := ledger.ParseAccountKind(filter.Kind)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Kind = kind
	}
	accounts, total, err := s.accountRepo.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, normalizeError(err)
	}
	out := make([]AccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToAccountResponse(&accounts[i])
	}
	return out, total, nil
}

// CloseAccount deactivates an account. Only adjustments can be posted afterwards.
func (s *LedgerService) CloseAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	return s.setAccountState(ctx, OpCloseAccount, tenantID, accountID, (*ledger.Account).Close)
}

// ReopenAccount reactivates a closed account
func (s *LedgerService) ReopenAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	return s.setAccountState(ctx, OpReopenAccount, tenantID, accountID, (*ledger.Account).Reopen)
}

func (s *LedgerService) setAccountState(
	ctx context.Context,
	op string,
	tenantID, accountID uuid.UUID,
	change func(*ledger.Account) error,
) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrAccountID, accountID.String())

	account, err := s.mutate(ctx, op, tenantID, accountID, func(ctx context.Context, repos TransactionalRepositories, account *ledger.Account) (int, error) {
		if err := change(account); err != nil {
			return 0, err
		}
		return 0, repos.AccountRepo().Save(ctx, account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	s.publishDomainEvents(ctx, account)

	resp := ToAccountResponse(account)
	return &resp, nil
}

// PostEntry inserts an entry at its chronological position and reflows the
// running balances of it and every later entry.
func (s *LedgerService) PostEntry(ctx context.Context, tenantID, accountID uuid.UUID, req PostEntryRequest) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, OpPostEntry)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, accountID.String(),
		telemetry.SpanAttrEntryType, req.EntryType.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	// Reject bad input before taking any lock.
	if _, err := ledger.SignedAmount(req.EntryType, req.Amount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := ledger.CheckIdempotencyKey(req.IdempotencyKey); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if replay := s.lookupReplay(ctx, tenantID, accountID, req.IdempotencyKey); replay != nil {
		telemetry.AddEvent(span, "idempotent_replay", telemetry.SpanAttrEntryID, replay.ID.String())
		telemetry.SetOK(span)
		return replay, nil
	}

	var (
		posted   *ledger.LedgerEntry
		replayed bool
	)
	account, err := s.mutate(ctx, OpPostEntry, tenantID, accountID, func(ctx context.Context, repos TransactionalRepositories, account *ledger.Account) (int, error) {
		if req.IdempotencyKey != "" {
			existing, err := repos.EntryRepo().FindByIdempotencyKey(ctx, tenantID, accountID, req.IdempotencyKey)
			if err != nil && !errors.Is(err, shared.ErrEntryNotFound) {
				return 0, err
			}
			if existing != nil {
				posted, replayed = existing, true
				return 0, nil
			}
		}
		if err := account.CheckAccepts(req.EntryType); err != nil {
			return 0, err
		}

		entry, err := ledger.NewLedgerEntry(tenantID, accountID, account.AllocateSequence(), req.EntryType, req.Amount, req.TransactionDate)
		if err != nil {
			return 0, err
		}
		entry.WithDescription(req.Description).
			WithReference(req.ReferenceNumber).
			WithCreatedBy(req.CreatedBy).
			WithIdempotencyKey(req.IdempotencyKey)

		if err := repos.EntryRepo().Insert(ctx, entry); err != nil {
			return 0, err
		}
		res, suffix, err := reflow(ctx, repos, account, entry.Position())
		if err != nil {
			return 0, err
		}
		adoptRunningBalance(entry, suffix)
		posted = entry
		account.RecordEvent(ledger.NewLedgerEntryPostedEvent(account, entry, len(res.Changed)))
		return len(res.Changed), nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, posted.ID.String(),
		telemetry.SpanAttrRunningBalance, posted.RunningBalance.String(),
	)
	telemetry.SetOK(span)

	if !replayed {
		s.rememberReplay(ctx, tenantID, accountID, req.IdempotencyKey, posted.ID)
		s.publishDomainEvents(ctx, account)
	}

	resp := ToEntryResponse(posted)
	resp.Replayed = replayed
	return &resp, nil
}

// UpdateEntry amends an entry and reflows balances from the earlier of its old
// and new positions.
func (s *LedgerService) UpdateEntry(ctx context.Context, tenantID, entryID uuid.UUID, req UpdateEntryRequest) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, OpUpdateEntry)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrEntryID, entryID.String())

	current, err := s.entryRepo.FindByID(ctx, tenantID, entryID)
	if err != nil {
		err = normalizeError(err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrAccountID, current.AccountID.String())

	var updated *ledger.LedgerEntry
	account, err := s.mutate(ctx, OpUpdateEntry, tenantID, current.AccountID, func(ctx context.Context, repos TransactionalRepositories, account *ledger.Account) (int, error) {
		// Re-read under the lock; the entry may have moved or gone since the first read.
		entry, err := repos.EntryRepo().FindByID(ctx, tenantID, entryID)
		if err != nil {
			return 0, err
		}
		before := *entry
		if err := entry.Amend(req); err != nil {
			return 0, err
		}
		if err := account.CheckAccepts(entry.EntryType); err != nil {
			return 0, err
		}
		if err := repos.EntryRepo().Update(ctx, entry); err != nil {
			return 0, err
		}

		from := ledger.EarlierOf(before.Position(), entry.Position())
		res, suffix, err := reflow(ctx, repos, account, from)
		if err != nil {
			return 0, err
		}
		adoptRunningBalance(entry, suffix)
		updated = entry
		account.RecordEvent(ledger.NewLedgerEntryUpdatedEvent(account, &before, entry, len(res.Changed)))
		return len(res.Changed), nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrRunningBalance, updated.RunningBalance.String())
	telemetry.SetOK(span)
	s.publishDomainEvents(ctx, account)

	resp := ToEntryResponse(updated)
	return &resp, nil
}

// DeleteEntry removes an entry and reflows every later entry
func (s *LedgerService) DeleteEntry(ctx context.Context, tenantID, entryID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, OpDeleteEntry)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrEntryID, entryID.String())

	current, err := s.entryRepo.FindByID(ctx, tenantID, entryID)
	if err != nil {
		err = normalizeError(err)
		telemetry.RecordError(span, err)
		return err
	}

	account, err := s.mutate(ctx, OpDeleteEntry, tenantID, current.AccountID, func(ctx context.Context, repos TransactionalRepositories, account *ledger.Account) (int, error) {
		entry, err := repos.EntryRepo().FindByID(ctx, tenantID, entryID)
		if err != nil {
			return 0, err
		}
		if err := repos.EntryRepo().Delete(ctx, tenantID, entryID); err != nil {
			return 0, err
		}
		res, _, err := reflow(ctx, repos, account, entry.Position())
		if err != nil {
			return 0, err
		}
		account.RecordEvent(ledger.NewLedgerEntryDeletedEvent(account, entry, len(res.Changed)))
		return len(res.Changed), nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)
	s.publishDomainEvents(ctx, account)
	return nil
}

// RecomputeAccount reflows the whole sequence from the opening balance.
// A consistent account comes back with zero repairs.
func (s *LedgerService) RecomputeAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*RecomputeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, OpRecompute)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrAccountID, accountID.String())

	var (
		walked   int
		repaired int
		previous decimal.Decimal
	)
	account, err := s.mutate(ctx, OpRecompute, tenantID, accountID, func(ctx context.Context, repos TransactionalRepositories, account *ledger.Account) (int, error) {
		previous = account.CurrentBalance
		res, _, err := reflow(ctx, repos, account, ledger.StartPosition)
		if err != nil {
			return 0, err
		}
		walked, repaired = res.Walked, len(res.Changed)
		if repaired > 0 || !previous.Equal(account.CurrentBalance) {
			account.RecordEvent(ledger.NewAccountRecomputedEvent(account, repaired))
		}
		return repaired, nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRecomputed, repaired)
	telemetry.SetOK(span)
	if repaired > 0 {
		s.logger.Warn("account balances repaired",
			zap.String("tenant_id", tenantID.String()),
			zap.String("account_id", accountID.String()),
			zap.Int("repaired", repaired),
		)
	}
	s.publishDomainEvents(ctx, account)

	return &RecomputeResponse{
		AccountID:       account.ID,
		Walked:          walked,
		Repaired:        repaired,
		PreviousBalance: previous,
		Balance:         account.CurrentBalance,
	}, nil
}

// GetEntry returns an entry by ID
func (s *LedgerService) GetEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*EntryResponse, error) {
	entry, err := s.entryRepo.FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, normalizeError(err)
	}
	resp := ToEntryResponse(entry)
	return &resp, nil
}

// ListEntries returns a page of an account's entries in chronological order
func (s *LedgerService) ListEntries(ctx context.Context, tenantID, accountID uuid.UUID, filter EntryListFilter) ([]EntryResponse, int64, error) {
	if _, err := s.accountRepo.FindByID(ctx, tenantID, accountID); err != nil {
		return nil, 0, normalizeError(err)
	}
	domainFilter := ledger.EntryFilter{Page: filter.Page, PageSize: filter.PageSize}
	if filter.From != nil {
		domainFilter.From = ledger.NormalizeDate(*filter.From)
	}
	if filter.To != nil {
		domainFilter.To = ledger.NormalizeDate(*filter.To)
	}
	entries, total, err := s.entryRepo.FindAll(ctx, tenantID, accountID, domainFilter)
	if err != nil {
		return nil, 0, normalizeError(err)
	}
	return ToEntryResponses(entries), total, nil
}

// GetRunningBalanceAt returns the opening balance plus every signed amount dated at or before asOf
func (s *LedgerService) GetRunningBalanceAt(ctx context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (*BalanceResponse, error) {
	account, err := s.accountRepo.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, normalizeError(err)
	}
	asOf = ledger.NormalizeDate(asOf)
	sum, err := s.entryRepo.SumUpTo(ctx, tenantID, accountID, asOf)
	if err != nil {
		return nil, normalizeError(err)
	}
	return &BalanceResponse{
		AccountID: account.ID,
		AsOf:      asOf,
		Balance:   account.OpeningBalance.Add(sum),
		Currency:  account.Currency.String(),
	}, nil
}

// GetStatement returns the entries dated within [from, to] with the balance
// before the first and after the last.
func (s *LedgerService) GetStatement(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) (*StatementResponse, error) {
	from, to = ledger.NormalizeDate(from), ledger.NormalizeDate(to)
	if to.Before(from) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Statement end must not precede its start")
	}
	account, err := s.accountRepo.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, normalizeError(err)
	}

	opening := account.OpeningBalance
	prev, err := s.entryRepo.FindPredecessor(ctx, tenantID, accountID, ledger.Position{Date: from})
	if err != nil {
		return nil, normalizeError(err)
	}
	if prev != nil {
		opening = prev.RunningBalance
	}

	entries, _, err := s.entryRepo.FindAll(ctx, tenantID, accountID, ledger.EntryFilter{From: from, To: to})
	if err != nil {
		return nil, normalizeError(err)
	}

	closing, inflow, outflow := opening, decimal.Zero, decimal.Zero
	for _, e := range entries {
		closing = closing.Add(e.SignedAmount)
		if e.SignedAmount.IsNegative() {
			outflow = outflow.Add(e.SignedAmount.Neg())
		} else {
			inflow = inflow.Add(e.SignedAmount)
		}
	}
	if n := len(entries); n > 0 && !entries[n-1].RunningBalance.Equal(closing) {
		s.logger.Warn("statement closing balance disagrees with stored running balance",
			zap.String("account_id", accountID.String()),
			zap.String("computed", closing.String()),
			zap.String("stored", entries[n-1].RunningBalance.String()),
		)
	}

	return &StatementResponse{
		AccountID:      account.ID,
		Currency:       account.Currency.String(),
		From:           from,
		To:             to,
		OpeningBalance: opening,
		ClosingBalance: closing,
		TotalInflow:    inflow,
		TotalOutflow:   outflow,
		Entries:        ToEntryResponses(entries),
	}, nil
}

type mutation func(ctx context.Context, repos TransactionalRepositories, account *ledger.Account) (recomputed int, err error)

// mutate runs fn against the locked account inside one transaction.
func (s *LedgerService) mutate(ctx context.Context, op string, tenantID, accountID uuid.UUID, fn mutation) (*ledger.Account, error) {
	if s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}
	started := time.Now()

	var (
		account    *ledger.Account
		recomputed int
	)
	err := func() error {
		release, err := s.locker.Lock(ctx, tenantID, accountID)
		s.metrics.RecordLockWait(ctx, op, time.Since(started))
		if err != nil {
			return err
		}
		defer release()

		var labelErr error
		telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(op), func(ctx context.Context) {
			labelErr = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
				a, err := repos.AccountRepo().FindByIDForUpdate(ctx, tenantID, accountID)
				if err != nil {
					return err
				}
				n, err := fn(ctx, repos, a)
				if err != nil {
					return err
				}
				account, recomputed = a, n
				return nil
			})
		})
		return labelErr
	}()
	err = normalizeError(err)
	s.metrics.RecordMutation(ctx, op, recomputed, time.Since(started), err)

	if err != nil {
		fields := []zap.Field{
			zap.String("operation", op),
			zap.String("tenant_id", tenantID.String()),
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		}
		if shared.ErrorCode(err) == shared.CodeStorageFailure {
			s.logger.Error("ledger mutation failed", fields...)
		} else {
			s.logger.Debug("ledger mutation rejected", fields...)
		}
		return nil, err
	}

	s.logger.Info("ledger mutation committed",
		zap.String("operation", op),
		zap.String("tenant_id", tenantID.String()),
		zap.String("account_id", accountID.String()),
		zap.Int("recomputed", recomputed),
		zap.String("balance", account.CurrentBalance.String()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return account, nil
}

// reflow recomputes running balances for every entry at or after from and
// stores the new closing balance on the account.
func reflow(ctx context.Context, repos TransactionalRepositories, account *ledger.Account, from ledger.Position) (ledger.RecomputeResult, []*ledger.LedgerEntry, error) {
	entries := repos.EntryRepo()

	start := account.OpeningBalance
	if !from.IsStart() {
		prev, err := entries.FindPredecessor(ctx, account.TenantID, account.ID, from)
		if err != nil {
			return ledger.RecomputeResult{}, nil, err
		}
		if prev != nil {
			start = prev.RunningBalance
		}
	}

	suffix, err := entries.FindFrom(ctx, account.TenantID, account.ID, from)
	if err != nil {
		return ledger.RecomputeResult{}, nil, err
	}
	res := ledger.Recompute(start, suffix)
	for _, e := range res.Changed {
		if err := ledger.CheckBalance(e.RunningBalance); err != nil {
			return ledger.RecomputeResult{}, nil, err
		}
	}
	if len(res.Changed) > 0 {
		if err := entries.UpdateRunningBalances(ctx, res.Changed); err != nil {
			return ledger.RecomputeResult{}, nil, err
		}
	}

	account.ApplyBalance(res.Closing)
	if err := repos.AccountRepo().Save(ctx, account); err != nil {
		return ledger.RecomputeResult{}, nil, err
	}
	return res, suffix, nil
}

func adoptRunningBalance(entry *ledger.LedgerEntry, suffix []*ledger.LedgerEntry) {
	for _, e := range suffix {
		if e.ID == entry.ID {
			entry.RunningBalance = e.RunningBalance
			return
		}
	}
}

func (s *LedgerService) replayKey(tenantID, accountID uuid.UUID, key string) string {
	return fmt.Sprintf("ledger:post:%s:%s", AccountLockKey(tenantID, accountID), key)
}

// lookupReplay answers a retried post from the idempotency store without locking.
func (s *LedgerService) lookupReplay(ctx context.Context, tenantID, accountID uuid.UUID, key string) *EntryResponse {
	if key == "" || s.idempotency == nil {
		return nil
	}
	value, ok, err := s.idempotency.Lookup(ctx, s.replayKey(tenantID, accountID, key))
	if err != nil {
		s.logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	entryID, err := uuid.Parse(value)
	if err != nil {
		return nil
	}
	entry, err := s.entryRepo.FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil
	}
	resp := ToEntryResponse(entry)
	resp.Replayed = true
	return &resp
}

func (s *LedgerService) rememberReplay(ctx context.Context, tenantID, accountID uuid.UUID, key string, entryID uuid.UUID) {
	if key == "" || s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, s.replayKey(tenantID, accountID, key), entryID.String(), s.idempotencyTTL); err != nil {
		s.logger.Warn("idempotency record failed", zap.String("key", key), zap.Error(err))
	}
}

// publishDomainEvents publishes and clears the account's pending events.
// Called only after commit; publish failures are logged and never fail the operation.
func (s *LedgerService) publishDomainEvents(ctx context.Context, account *ledger.Account) {
	events := account.PendingEvents()
	account.ClearEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish ledger events",
			zap.String("account_id", account.ID.String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

// normalizeError keeps domain errors and context errors as they are and turns
// anything else into an opaque StorageFailure.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return shared.WrapDomainError(shared.CodeStorageFailure, "Storage operation failed", err)
}
