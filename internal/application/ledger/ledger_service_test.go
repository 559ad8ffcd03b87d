package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockMetricsRecorder is a testify mock of MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordMutation(ctx context.Context, operation string, recomputed int, elapsed time.Duration, err error) {
	m.Called(ctx, operation, recomputed, elapsed, err)
}

func (m *MockMetricsRecorder) RecordLockWait(ctx context.Context, operation string, waited time.Duration) {
	m.Called(ctx, operation, waited)
}

type mapIdempotencyStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMapIdempotencyStore() *mapIdempotencyStore {
	return &mapIdempotencyStore{values: make(map[string]string)}
}

func (s *mapIdempotencyStore) MarkProcessed(_ context.Context, key, result string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = result
	return true, nil
}

func (s *mapIdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *mapIdempotencyStore) Close() error { return nil }

type testEnv struct {
	store     *memoryStore
	svc       *LedgerService
	publisher *MockEventPublisher
	tenantID  uuid.UUID
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store := newMemoryStore()
	scope := store.scope()
	svc := NewLedgerService(scope.AccountRepo(), scope.EntryRepo(), scope, opts...)
	publisher := NewMockEventPublisher()
	svc.SetEventPublisher(publisher)
	return &testEnv{store: store, svc: svc, publisher: publisher, tenantID: uuid.New()}
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func (env *testEnv) openAccount(t *testing.T, opening int64) uuid.UUID {
	t.Helper()
	acc, err := env.svc.OpenAccount(context.Background(), env.tenantID, OpenAccountRequest{
		Kind:           ledger.AccountKindBank,
		Name:           "Operating",
		Currency:       valueobject.USD,
		OpeningBalance: dec(opening),
	})
	require.NoError(t, err)
	return acc.ID
}

func (env *testEnv) post(t *testing.T, accountID uuid.UUID, typ ledger.EntryType, amount int64, d int) *EntryResponse {
	t.Helper()
	resp, err := env.svc.PostEntry(context.Background(), env.tenantID, accountID, PostEntryRequest{
		EntryType:       typ,
		Amount:          dec(amount),
		TransactionDate: day(d),
	})
	require.NoError(t, err)
	return resp
}

// balances returns "YYYY-MM-DD=balance" for every entry in chronological order
func (env *testEnv) balances(t *testing.T, accountID uuid.UUID) []string {
	t.Helper()
	entries, _, err := env.svc.ListEntries(context.Background(), env.tenantID, accountID, EntryListFilter{})
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = fmt.Sprintf("%s=%s", e.TransactionDate.Format("01-02"), e.RunningBalance.String())
	}
	return out
}

// assertConsistent checks the ordering invariant and cache coherence
func (env *testEnv) assertConsistent(t *testing.T, accountID uuid.UUID) {
	t.Helper()
	acc, err := env.svc.GetAccount(context.Background(), env.tenantID, accountID)
	require.NoError(t, err)

	env.store.mu.Lock()
	ordered := env.store.ordered(env.tenantID, accountID)
	env.store.mu.Unlock()

	assert.Nil(t, ledger.Verify(acc.OpeningBalance, ordered), "running balances out of order")
	want := acc.OpeningBalance
	if n := len(ordered); n > 0 {
		want = ordered[n-1].RunningBalance
	}
	assert.True(t, acc.CurrentBalance.Equal(want), "current balance %s, last running %s", acc.CurrentBalance, want)
}

func TestLedgerService_Scenario(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 0)

	first := env.post(t, acc, ledger.EntryTypeDeposit, 500, 5)
	assert.Equal(t, "500", first.RunningBalance.String())

	second := env.post(t, acc, ledger.EntryTypeWithdrawal, 200, 10)
	assert.Equal(t, "300", second.RunningBalance.String())

	backdated := env.post(t, acc, ledger.EntryTypeDeposit, 100, 7)
	assert.Equal(t, "600", backdated.RunningBalance.String())
	assert.Equal(t, []string{"01-05=500", "01-07=600", "01-10=400"}, env.balances(t, acc))
	env.assertConsistent(t, acc)

	require.NoError(t, env.svc.DeleteEntry(context.Background(), env.tenantID, backdated.ID))
	assert.Equal(t, []string{"01-05=500", "01-10=300"}, env.balances(t, acc))
	env.assertConsistent(t, acc)
}

func TestLedgerService_OrderingInvariantUnderArbitraryPostOrder(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 1000)

	rng := rand.New(rand.NewSource(42))
	days := rng.Perm(28)
	for i, d := range days {
		typ, amount := ledger.EntryTypeDeposit, int64(rng.Intn(500))
		if i%3 == 0 {
			typ = ledger.EntryTypeWithdrawal
		}
		env.post(t, acc, typ, amount, d+1)
		env.assertConsistent(t, acc)
	}
	assert.Len(t, env.balances(t, acc), 28)
}

func TestLedgerService_BackdatedInsert(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 0)
	env.post(t, acc, ledger.EntryTypeDeposit, 100, 1)
	day3 := env.post(t, acc, ledger.EntryTypeDeposit, 50, 3)
	assert.Equal(t, "150", day3.RunningBalance.String())

	day2 := env.post(t, acc, ledger.EntryTypeWithdrawal, 30, 2)

	assert.Equal(t, "70", day2.RunningBalance.String())
	assert.Equal(t, []string{"01-01=100", "01-02=70", "01-03=120"}, env.balances(t, acc))
	env.assertConsistent(t, acc)
}

func TestLedgerService_DeleteReflows(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 0)
	env.post(t, acc, ledger.EntryTypeDeposit, 100, 1)
	day2 := env.post(t, acc, ledger.EntryTypeDeposit, 50, 2)
	env.post(t, acc, ledger.EntryTypeWithdrawal, 20, 3)
	assert.Equal(t, []string{"01-01=100", "01-02=150", "01-03=130"}, env.balances(t, acc))

	require.NoError(t, env.svc.DeleteEntry(context.Background(), env.tenantID, day2.ID))

	assert.Equal(t, []string{"01-01=100", "01-03=80"}, env.balances(t, acc))
	env.assertConsistent(t, acc)

	deleted := env.publisher.GetEventsByType(ledger.EventTypeLedgerEntryDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, 1, deleted[0].(*ledger.LedgerEntryDeletedEvent).Recomputed)
}

func TestLedgerService_DeleteOnlyEntryResetsToOpening(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 75)
	only := env.post(t, acc, ledger.EntryTypeDeposit, 25, 1)

	require.NoError(t, env.svc.DeleteEntry(context.Background(), env.tenantID, only.ID))

	got, err := env.svc.GetAccount(context.Background(), env.tenantID, acc)
	require.NoError(t, err)
	assert.Equal(t, "75", got.CurrentBalance.String())
	assert.Empty(t, env.balances(t, acc))
}

func TestLedgerService_UpdateReorders(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 0)
	day1 := env.post(t, acc, ledger.EntryTypeDeposit, 100, 1)
	env.post(t, acc, ledger.EntryTypeDeposit, 50, 2)

	moved := day(3)
	updated, err := env.svc.UpdateEntry(context.Background(), env.tenantID, day1.ID, UpdateEntryRequest{TransactionDate: &moved})
	require.NoError(t, err)

	assert.Equal(t, "150", updated.RunningBalance.String())
	assert.Equal(t, []string{"01-02=50", "01-03=150"}, env.balances(t, acc))
	env.assertConsistent(t, acc)
}

func TestLedgerService_UpdateAmountAndType(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 10)
	env.post(t, acc, ledger.EntryTypeDeposit, 100, 1)
	mid := env.post(t, acc, ledger.EntryTypeDeposit, 50, 2)
	env.post(t, acc, ledger.EntryTypeDeposit, 5, 3)

	typ := ledger.EntryTypeWithdrawal
	amount := dec(40)
	updated, err := env.svc.UpdateEntry(context.Background(), env.tenantID, mid.ID, UpdateEntryRequest{EntryType: &typ, Amount: &amount})
	require.NoError(t, err)

	assert.Equal(t, "70", updated.RunningBalance.String())
	assert.Equal(t, []string{"01-01=110", "01-02=70", "01-03=75"}, env.balances(t, acc))
	env.assertConsistent(t, acc)

	events := env.publisher.GetEventsByType(ledger.EventTypeLedgerEntryUpdated)
	require.Len(t, events, 1)
	ev := events[0].(*ledger.LedgerEntryUpdatedEvent)
	assert.Equal(t, "50", ev.OldSignedAmount.String())
	assert.Equal(t, "-40", ev.NewSignedAmount.String())
}

func TestLedgerService_UpdateMovesEntryEarlier(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 0)
	env.post(t, acc, ledger.EntryTypeDeposit, 100, 5)
	env.post(t, acc, ledger.EntryTypeDeposit, 10, 6)
	late := env.post(t, acc, ledger.EntryTypeWithdrawal, 30, 9)

	earlier := day(1)
	_, err := env.svc.UpdateEntry(context.Background(), env.tenantID, late.ID, UpdateEntryRequest{TransactionDate: &earlier})
	require.NoError(t, err)

	assert.Equal(t, []string{"01-01=-30", "01-05=70", "01-06=80"}, env.balances(t, acc))
	env.assertConsistent(t, acc)
}

func TestLedgerService_SameDateOrdersBySequence(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 0)
	a := env.post(t, acc, ledger.EntryTypeDeposit, 10, 4)
	b := env.post(t, acc, ledger.EntryTypeWithdrawal, 3, 4)
	c := env.post(t, acc, ledger.EntryTypeDeposit, 1, 4)

	assert.Less(t, a.Sequence, b.Sequence)
	assert.Less(t, b.Sequence, c.Sequence)
	assert.Equal(t, "10", a.RunningBalance.String())
	assert.Equal(t, "7", b.RunningBalance.String())
	assert.Equal(t, "8", c.RunningBalance.String())

	require.NoError(t, env.svc.DeleteEntry(context.Background(), env.tenantID, a.ID))
	d := env.post(t, acc, ledger.EntryTypeDeposit, 2, 4)
	assert.Greater(t, d.Sequence, c.Sequence, "sequences are never reused")
	env.assertConsistent(t, acc)
}

func TestLedgerService_RecomputeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 0)
	env.post(t, acc, ledger.EntryTypeDeposit, 100, 1)
	env.post(t, acc, ledger.EntryTypeDeposit, 50, 2)
	before := env.balances(t, acc)

	res, err := env.svc.RecomputeAccount(context.Background(), env.tenantID, acc)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Walked)
	assert.Zero(t, res.Repaired)
	assert.Equal(t, before, env.balances(t, acc))
	assert.Empty(t, env.publisher.GetEventsByType(ledger.EventTypeAccountRecomputed))
}

func TestLedgerService_RecomputeRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 0)
	first := env.post(t, acc, ledger.EntryTypeDeposit, 100, 1)
	env.post(t, acc, ledger.EntryTypeDeposit, 50, 2)

	env.store.mu.Lock()
	drifted := env.store.entries[first.ID]
	drifted.RunningBalance = dec(1)
	env.store.entries[first.ID] = drifted
	env.store.mu.Unlock()

	res, err := env.svc.RecomputeAccount(context.Background(), env.tenantID, acc)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Repaired)
	assert.Equal(t, "150", res.Balance.String())
	env.assertConsistent(t, acc)
	assert.Len(t, env.publisher.GetEventsByType(ledger.EventTypeAccountRecomputed), 1)
}

func TestLedgerService_GetRunningBalanceAtAgreesWithEntries(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 20)
	env.post(t, acc, ledger.EntryTypeDeposit, 100, 3)
	env.post(t, acc, ledger.EntryTypeWithdrawal, 30, 6)
	env.post(t, acc, ledger.EntryTypeDeposit, 5, 6)
	env.post(t, acc, ledger.EntryTypeDeposit, 50, 12)

	entries, _, err := env.svc.ListEntries(context.Background(), env.tenantID, acc, EntryListFilter{})
	require.NoError(t, err)

	for d := 1; d <= 14; d++ {
		want := dec(20)
		for _, e := range entries {
			if !e.TransactionDate.After(day(d)) {
				want = e.RunningBalance
			}
		}
		got, err := env.svc.GetRunningBalanceAt(context.Background(), env.tenantID, acc, day(d))
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(want), "day %d: got %s want %s", d, got.Balance, want)
	}
}

func TestLedgerService_GetStatement(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 10)
	env.post(t, acc, ledger.EntryTypeDeposit, 100, 1)
	env.post(t, acc, ledger.EntryTypeWithdrawal, 40, 5)
	env.post(t, acc, ledger.EntryTypeDeposit, 15, 7)
	env.post(t, acc, ledger.EntryTypeDeposit, 1, 20)

	st, err := env.svc.GetStatement(context.Background(), env.tenantID, acc, day(2), day(10))
	require.NoError(t, err)

	assert.Equal(t, "110", st.OpeningBalance.String())
	assert.Equal(t, "85", st.ClosingBalance.String())
	assert.Equal(t, "15", st.TotalInflow.String())
	assert.Equal(t, "40", st.TotalOutflow.String())
	require.Len(t, st.Entries, 2)
	assert.Equal(t, st.ClosingBalance.String(), st.Entries[1].RunningBalance.String())

	_, err = env.svc.GetStatement(context.Background(), env.tenantID, acc, day(10), day(2))
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestLedgerService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown account", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.PostEntry(ctx, env.tenantID, uuid.New(), PostEntryRequest{
			EntryType: ledger.EntryTypeDeposit, Amount: dec(1), TransactionDate: day(1),
		})
		assert.True(t, errors.Is(err, shared.ErrAccountNotFound))
	})

	t.Run("account of another tenant", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.openAccount(t, 0)
		_, err := env.svc.PostEntry(ctx, uuid.New(), acc, PostEntryRequest{
			EntryType: ledger.EntryTypeDeposit, Amount: dec(1), TransactionDate: day(1),
		})
		assert.True(t, errors.Is(err, shared.ErrAccountNotFound))
	})

	t.Run("negative amount", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.openAccount(t, 0)
		_, err := env.svc.PostEntry(ctx, env.tenantID, acc, PostEntryRequest{
			EntryType: ledger.EntryTypeWithdrawal, Amount: dec(-5), TransactionDate: day(1),
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidAmount))
		assert.Empty(t, env.balances(t, acc))
	})

	t.Run("closed account accepts only adjustments", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.openAccount(t, 0)
		posted := env.post(t, acc, ledger.EntryTypeDeposit, 10, 1)
		_, err := env.svc.CloseAccount(ctx, env.tenantID, acc)
		require.NoError(t, err)

		_, err = env.svc.PostEntry(ctx, env.tenantID, acc, PostEntryRequest{
			EntryType: ledger.EntryTypeDeposit, Amount: dec(1), TransactionDate: day(2),
		})
		assert.True(t, errors.Is(err, shared.ErrAccountInactive))

		amount := dec(20)
		_, err = env.svc.UpdateEntry(ctx, env.tenantID, posted.ID, UpdateEntryRequest{Amount: &amount})
		assert.True(t, errors.Is(err, shared.ErrAccountInactive))

		adj, err := env.svc.PostEntry(ctx, env.tenantID, acc, PostEntryRequest{
			EntryType: ledger.EntryTypeAdjustment, Amount: dec(-4), TransactionDate: day(2),
		})
		require.NoError(t, err)
		assert.Equal(t, "6", adj.RunningBalance.String())
		env.assertConsistent(t, acc)
	})

	t.Run("unknown entry", func(t *testing.T) {
		env := newTestEnv(t)
		amount := dec(1)
		_, err := env.svc.UpdateEntry(ctx, env.tenantID, uuid.New(), UpdateEntryRequest{Amount: &amount})
		assert.True(t, errors.Is(err, shared.ErrEntryNotFound))
		assert.True(t, errors.Is(env.svc.DeleteEntry(ctx, env.tenantID, uuid.New()), shared.ErrEntryNotFound))
	})

	t.Run("update with invalid amount changes nothing", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.openAccount(t, 0)
		e := env.post(t, acc, ledger.EntryTypeDeposit, 10, 1)
		bad := dec(-3)
		_, err := env.svc.UpdateEntry(ctx, env.tenantID, e.ID, UpdateEntryRequest{Amount: &bad})
		assert.True(t, errors.Is(err, shared.ErrInvalidAmount))
		assert.Equal(t, []string{"01-01=10"}, env.balances(t, acc))
	})

	t.Run("storage failure surfaces and publishes nothing", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.openAccount(t, 0)
		env.store.failUpdateBalances = errors.New("disk on fire")

		_, err := env.svc.PostEntry(ctx, env.tenantID, acc, PostEntryRequest{
			EntryType: ledger.EntryTypeDeposit, Amount: dec(5), TransactionDate: day(1),
		})
		assert.True(t, errors.Is(err, shared.ErrStorageFailure))
		assert.True(t, shared.IsRetryable(err))
		assert.NotContains(t, err.Error(), "disk on fire")
		assert.Empty(t, env.publisher.GetEventsByType(ledger.EventTypeLedgerEntryPosted))
	})
}

func TestLedgerService_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	req := PostEntryRequest{
		EntryType: ledger.EntryTypeDeposit, Amount: dec(40), TransactionDate: day(3), IdempotencyKey: "till-42-open",
	}

	t.Run("database lookup replays the original entry", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.openAccount(t, 0)

		first, err := env.svc.PostEntry(ctx, env.tenantID, acc, req)
		require.NoError(t, err)
		again, err := env.svc.PostEntry(ctx, env.tenantID, acc, req)
		require.NoError(t, err)

		assert.Equal(t, first.ID, again.ID)
		assert.False(t, first.Replayed)
		assert.True(t, again.Replayed)
		assert.Len(t, env.balances(t, acc), 1)
		assert.Len(t, env.publisher.GetEventsByType(ledger.EventTypeLedgerEntryPosted), 1)
	})

	t.Run("store fast path", func(t *testing.T) {
		store := newMapIdempotencyStore()
		env := newTestEnv(t, WithIdempotencyStore(store, time.Hour))
		acc := env.openAccount(t, 0)

		first, err := env.svc.PostEntry(ctx, env.tenantID, acc, req)
		require.NoError(t, err)
		assert.Len(t, store.values, 1)

		again, err := env.svc.PostEntry(ctx, env.tenantID, acc, req)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.True(t, again.Replayed)
	})
}

func TestLedgerService_PublishFailureDoesNotFailOperation(t *testing.T) {
	env := newTestEnv(t)
	acc := env.openAccount(t, 0)
	env.publisher.err = errors.New("broker down")

	resp := env.post(t, acc, ledger.EntryTypeDeposit, 9, 1)
	assert.Equal(t, "9", resp.RunningBalance.String())
}

func TestLedgerService_ConcurrentPostsOnOneAccount(t *testing.T) {
	env := newTestEnv(t, WithLocker(NewKeyedMutexLocker()))
	acc := env.openAccount(t, 0)
	other := env.openAccount(t, 0)

	const workers = 40
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.PostEntry(context.Background(), env.tenantID, acc, PostEntryRequest{
				EntryType: ledger.EntryTypeDeposit, Amount: dec(int64(i + 1)), TransactionDate: day(28 - i%28),
			})
			errs <- err
		}(i)
		go func() {
			defer wg.Done()
			_, err := env.svc.PostEntry(context.Background(), env.tenantID, other, PostEntryRequest{
				EntryType: ledger.EntryTypeDeposit, Amount: dec(1), TransactionDate: day(1),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	env.assertConsistent(t, acc)
	env.assertConsistent(t, other)
	got, err := env.svc.GetAccount(context.Background(), env.tenantID, acc)
	require.NoError(t, err)
	assert.Equal(t, "820", got.CurrentBalance.String())

	seen := map[int64]bool{}
	entries, _, err := env.svc.ListEntries(context.Background(), env.tenantID, acc, EntryListFilter{})
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, seen[e.Sequence], "duplicate sequence %d", e.Sequence)
		seen[e.Sequence] = true
	}
}

func TestLedgerService_LockTimeoutIsConflict(t *testing.T) {
	locker := NewKeyedMutexLocker()
	env := newTestEnv(t, WithLocker(locker), WithOperationTimeout(20*time.Millisecond))
	acc := env.openAccount(t, 0)

	release, err := locker.Lock(context.Background(), env.tenantID, acc)
	require.NoError(t, err)
	defer release()

	_, err = env.svc.PostEntry(context.Background(), env.tenantID, acc, PostEntryRequest{
		EntryType: ledger.EntryTypeDeposit, Amount: dec(1), TransactionDate: day(1),
	})
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	assert.True(t, shared.IsRetryable(err))
}

func TestLedgerService_RecordsMetrics(t *testing.T) {
	metrics := new(MockMetricsRecorder)
	metrics.On("RecordLockWait", mock.Anything, OpPostEntry, mock.Anything).Return()
	metrics.On("RecordMutation", mock.Anything, OpPostEntry, 1, mock.Anything, nil).Return()

	env := newTestEnv(t, WithMetrics(metrics))
	acc := env.openAccount(t, 0)
	env.post(t, acc, ledger.EntryTypeDeposit, 3, 1)

	metrics.AssertExpectations(t)
}

func TestLedgerService_AccountLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acc := env.openAccount(t, 5)

	closed, err := env.svc.CloseAccount(ctx, env.tenantID, acc)
	require.NoError(t, err)
	assert.False(t, closed.IsActive)

	_, err = env.svc.CloseAccount(ctx, env.tenantID, acc)
	assert.True(t, errors.Is(err, shared.ErrAccountInactive))

	reopened, err := env.svc.ReopenAccount(ctx, env.tenantID, acc)
	require.NoError(t, err)
	assert.True(t, reopened.IsActive)

	active := true
	list, total, err := env.svc.ListAccounts(ctx, env.tenantID, AccountListFilter{Kind: "bank", IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, acc, list[0].ID)

	assert.Len(t, env.publisher.GetEventsByType(ledger.EventTypeAccountOpened), 1)
	assert.Len(t, env.publisher.GetEventsByType(ledger.EventTypeAccountClosed), 1)
	assert.Len(t, env.publisher.GetEventsByType(ledger.EventTypeAccountReopened), 1)
}
