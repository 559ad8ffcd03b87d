package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newGormLedgerService(t *testing.T) (*appledger.LedgerService, *GormEntryRepository) {
	t.Helper()
	return ledgerServiceOn(setupLedgerTestDB(t))
}

func ledgerServiceOn(db *gorm.DB) (*appledger.LedgerService, *GormEntryRepository) {
	accounts := NewGormAccountRepository(db)
	entries := NewGormEntryRepository(db)
	svc := appledger.NewLedgerService(accounts, entries, NewGormTransactionScope(db))
	return svc, entries
}

func runningBalances(t *testing.T, svc *appledger.LedgerService, tenantID, accountID uuid.UUID) []string {
	t.Helper()
	list, _, err := svc.ListEntries(context.Background(), tenantID, accountID, appledger.EntryListFilter{})
	require.NoError(t, err)
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = fmt.Sprintf("%02d=%s", e.TransactionDate.Day(), e.RunningBalance.String())
	}
	return out
}

func TestLedgerEngine_OnGorm(t *testing.T) {
	svc, entries := newGormLedgerService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	acc, err := svc.OpenAccount(ctx, tenantID, appledger.OpenAccountRequest{
		Kind:     ledger.AccountKindTill,
		Name:     "Register 1",
		Currency: valueobject.USD,
	})
	require.NoError(t, err)

	post := func(typ ledger.EntryType, amount int64, d int) *appledger.EntryResponse {
		resp, err := svc.PostEntry(ctx, tenantID, acc.ID, appledger.PostEntryRequest{
			EntryType:       typ,
			Amount:          decimal.NewFromInt(amount),
			TransactionDate: day(d),
		})
		require.NoError(t, err)
		return resp
	}

	post(ledger.EntryTypeDeposit, 500, 5)
	post(ledger.EntryTypeWithdrawal, 200, 10)
	backdated := post(ledger.EntryTypeDeposit, 100, 7)
	assert.Equal(t, "600", backdated.RunningBalance.String())
	assert.Equal(t, []string{"05=500", "07=600", "10=400"}, runningBalances(t, svc, tenantID, acc.ID))

	t.Run("update moves the entry and reflows", func(t *testing.T) {
		later := day(12)
		_, err := svc.UpdateEntry(ctx, tenantID, backdated.ID, appledger.UpdateEntryRequest{TransactionDate: &later})
		require.NoError(t, err)
		assert.Equal(t, []string{"05=500", "10=300", "12=400"}, runningBalances(t, svc, tenantID, acc.ID))
	})

	t.Run("delete reflows and refreshes the cached balance", func(t *testing.T) {
		require.NoError(t, svc.DeleteEntry(ctx, tenantID, backdated.ID))
		assert.Equal(t, []string{"05=500", "10=300"}, runningBalances(t, svc, tenantID, acc.ID))

		got, err := svc.GetAccount(ctx, tenantID, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "300", got.CurrentBalance.String())
	})

	t.Run("balance as of a date", func(t *testing.T) {
		bal, err := svc.GetRunningBalanceAt(ctx, tenantID, acc.ID, day(9))
		require.NoError(t, err)
		assert.Equal(t, "500", bal.Balance.String())
	})

	t.Run("recompute finds nothing to repair", func(t *testing.T) {
		res, err := svc.RecomputeAccount(ctx, tenantID, acc.ID)
		require.NoError(t, err)
		assert.Zero(t, res.Repaired)
		assert.Equal(t, 2, res.Walked)
	})

	t.Run("stored order verifies", func(t *testing.T) {
		all, err := entries.FindFrom(ctx, tenantID, acc.ID, ledger.StartPosition)
		require.NoError(t, err)
		assert.Nil(t, ledger.Verify(decimal.Zero, all))
	})
}

func TestLedgerEngine_ConcurrentPostsOnGorm(t *testing.T) {
	svc, _ := newGormLedgerService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	acc, err := svc.OpenAccount(ctx, tenantID, appledger.OpenAccountRequest{
		Kind:           ledger.AccountKindBank,
		Name:           "Clearing",
		OpeningBalance: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	const workers = 12
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.PostEntry(ctx, tenantID, acc.ID, appledger.PostEntryRequest{
				EntryType:       ledger.EntryTypeDeposit,
				Amount:          decimal.NewFromInt(10),
				TransactionDate: day(1 + i%5),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := svc.GetAccount(ctx, tenantID, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "220", got.CurrentBalance.String())

	list, total, err := svc.ListEntries(ctx, tenantID, acc.ID, appledger.EntryListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(workers), total)
	assert.Equal(t, "220", list[len(list)-1].RunningBalance.String())
}

// failRunningBalanceWrite makes the nth running_balance column update of the
// armed period fail
func failRunningBalanceWrite(t *testing.T, db *gorm.DB, nth int32) *atomic.Bool {
	t.Helper()
	var armed atomic.Bool
	var seen atomic.Int32
	err := db.Callback().Update().Before("gorm:update").Register("test:fail_running_balance", func(tx *gorm.DB) {
		if !armed.Load() {
			return
		}
		dest, ok := tx.Statement.Dest.(map[string]interface{})
		if !ok {
			return
		}
		if _, ok := dest["running_balance"]; !ok {
			return
		}
		if seen.Add(1) == nth {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)
	return &armed
}

func TestLedgerEngine_FailedReflowLeavesLedgerUntouched(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc, _ := ledgerServiceOn(db)
	ctx := context.Background()
	tenantID := uuid.New()

	acc, err := svc.OpenAccount(ctx, tenantID, appledger.OpenAccountRequest{
		Kind: ledger.AccountKindTill,
		Name: "Register 2",
	})
	require.NoError(t, err)
	for _, d := range []int{5, 10, 15} {
		_, err := svc.PostEntry(ctx, tenantID, acc.ID, appledger.PostEntryRequest{
			EntryType:       ledger.EntryTypeDeposit,
			Amount:          decimal.NewFromInt(100),
			TransactionDate: day(d),
		})
		require.NoError(t, err)
	}
	before := runningBalances(t, svc, tenantID, acc.ID)
	require.Equal(t, []string{"05=100", "10=200", "15=300"}, before)

	armed := failRunningBalanceWrite(t, db, 2)
	armed.Store(true)

	_, err = svc.PostEntry(ctx, tenantID, acc.ID, appledger.PostEntryRequest{
		EntryType:       ledger.EntryTypeDeposit,
		Amount:          decimal.NewFromInt(50),
		TransactionDate: day(1),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrStorageFailure), "got %v", err)

	armed.Store(false)
	assert.Equal(t, before, runningBalances(t, svc, tenantID, acc.ID))
	got, err := svc.GetAccount(ctx, tenantID, acc.ID)
	require.NoError(t, err)
	assertDecimal(t, "300", got.CurrentBalance)

	_, total, err := svc.ListEntries(ctx, tenantID, acc.ID, appledger.EntryListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	t.Run("same post succeeds once storage recovers", func(t *testing.T) {
		_, err := svc.PostEntry(ctx, tenantID, acc.ID, appledger.PostEntryRequest{
			EntryType:       ledger.EntryTypeDeposit,
			Amount:          decimal.NewFromInt(50),
			TransactionDate: day(1),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"01=50", "05=150", "10=250", "15=350"}, runningBalances(t, svc, tenantID, acc.ID))
	})
}

func TestLedgerEngine_AmountsStayWithinStorageScale(t *testing.T) {
	svc, entries := newGormLedgerService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	acc, err := svc.OpenAccount(ctx, tenantID, appledger.OpenAccountRequest{
		Kind: ledger.AccountKindBank,
		Name: "Fractional",
	})
	require.NoError(t, err)

	post := func(amount string, d int) error {
		_, err := svc.PostEntry(ctx, tenantID, acc.ID, appledger.PostEntryRequest{
			EntryType:       ledger.EntryTypeDeposit,
			Amount:          decimal.RequireFromString(amount),
			TransactionDate: day(d),
		})
		return err
	}

	t.Run("more than four decimals is rejected", func(t *testing.T) {
		err := post("1.23456", 1)
		assert.True(t, errors.Is(err, shared.ErrInvalidAmount), "got %v", err)
		err = post("1e20", 1)
		assert.True(t, errors.Is(err, shared.ErrInvalidAmount), "got %v", err)
	})

	t.Run("stored running balance equals the stored sum", func(t *testing.T) {
		require.NoError(t, post("1.2345", 2))
		require.NoError(t, post("1.2345", 3))

		all, err := entries.FindFrom(ctx, tenantID, acc.ID, ledger.StartPosition)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assertDecimal(t, "2.469", all[1].RunningBalance)
		assert.Nil(t, ledger.Verify(decimal.Zero, all))

		bal, err := svc.GetRunningBalanceAt(ctx, tenantID, acc.ID, day(3))
		require.NoError(t, err)
		assertDecimal(t, "2.469", bal.Balance)
	})
}

func TestLedgerEngine_BalanceOverflowRollsBack(t *testing.T) {
	svc, _ := newGormLedgerService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	acc, err := svc.OpenAccount(ctx, tenantID, appledger.OpenAccountRequest{
		Kind:           ledger.AccountKindBank,
		Name:           "Treasury",
		OpeningBalance: decimal.New(9, 15),
	})
	require.NoError(t, err)

	_, err = svc.PostEntry(ctx, tenantID, acc.ID, appledger.PostEntryRequest{
		EntryType:       ledger.EntryTypeAdjustment,
		Amount:          decimal.New(1, 15),
		TransactionDate: day(1),
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidAmount), "got %v", err)

	_, total, err := svc.ListEntries(ctx, tenantID, acc.ID, appledger.EntryListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	got, err := svc.GetAccount(ctx, tenantID, acc.ID)
	require.NoError(t, err)
	assertDecimal(t, "9000000000000000", got.CurrentBalance)
}
