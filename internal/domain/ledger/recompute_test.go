package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkEntry(t *testing.T, d int, seq int64, signed int64) *LedgerEntry {
	t.Helper()
	typ := EntryTypeAdjustment
	e, err := NewLedgerEntry(uuid.New(), uuid.New(), seq, typ, decimal.NewFromInt(signed), day(d))
	require.NoError(t, err)
	return e
}

func balances(entries []*LedgerEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.RunningBalance.String()
	}
	return out
}

func TestPosition_Compare(t *testing.T) {
	a := Position{Date: day(1), Sequence: 5}
	b := Position{Date: day(1), Sequence: 6}
	c := Position{Date: day(2), Sequence: 1}

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, a, EarlierOf(c, a))
	assert.True(t, StartPosition.Before(a))
	assert.True(t, StartPosition.IsStart())
}

func TestSortEntries(t *testing.T) {
	e1 := mkEntry(t, 3, 1, 10)
	e2 := mkEntry(t, 1, 3, 10)
	e3 := mkEntry(t, 1, 2, 10)
	entries := []*LedgerEntry{e1, e2, e3}

	SortEntries(entries)

	assert.Equal(t, []*LedgerEntry{e3, e2, e1}, entries)
}

func TestRecompute(t *testing.T) {
	t.Run("walks forward from start balance", func(t *testing.T) {
		entries := []*LedgerEntry{mkEntry(t, 1, 1, 100), mkEntry(t, 2, 3, -30), mkEntry(t, 3, 2, 50)}

		res := Recompute(decimal.Zero, entries)

		assert.Equal(t, []string{"100", "70", "120"}, balances(entries))
		assert.Len(t, res.Changed, 3)
		assert.Equal(t, 3, res.Walked)
		assert.True(t, res.Closing.Equal(decimal.NewFromInt(120)))
	})

	t.Run("consistent sequence is a no-op", func(t *testing.T) {
		entries := []*LedgerEntry{mkEntry(t, 1, 1, 100), mkEntry(t, 2, 2, 50)}
		Recompute(decimal.NewFromInt(10), entries)

		res := Recompute(decimal.NewFromInt(10), entries)

		assert.Empty(t, res.Changed)
		assert.Equal(t, []string{"110", "160"}, balances(entries))
	})

	t.Run("only rewrites drifted entries", func(t *testing.T) {
		entries := []*LedgerEntry{mkEntry(t, 1, 1, 100), mkEntry(t, 2, 2, 50), mkEntry(t, 3, 3, -20)}
		Recompute(decimal.Zero, entries)
		entries[1].RunningBalance = decimal.NewFromInt(999)

		res := Recompute(decimal.Zero, entries)

		require.Len(t, res.Changed, 1)
		assert.Same(t, entries[1], res.Changed[0])
	})

	t.Run("empty suffix closes at start", func(t *testing.T) {
		res := Recompute(decimal.NewFromInt(42), nil)
		assert.True(t, res.Closing.Equal(decimal.NewFromInt(42)))
		assert.Zero(t, res.Walked)
	})
}

func TestBalanceAtAgreesWithRunningBalance(t *testing.T) {
	opening := decimal.NewFromInt(5)
	entries := []*LedgerEntry{mkEntry(t, 2, 1, 100), mkEntry(t, 4, 2, -30), mkEntry(t, 4, 3, 7), mkEntry(t, 9, 4, 50)}
	Recompute(opening, entries)

	for d := 1; d <= 10; d++ {
		want := opening
		for _, e := range entries {
			if !e.TransactionDate.After(day(d)) {
				want = e.RunningBalance
			}
		}
		assert.True(t, BalanceAt(opening, entries, day(d)).Equal(want), "day %d", d)
	}
}

func TestVerify(t *testing.T) {
	entries := []*LedgerEntry{mkEntry(t, 1, 1, 100), mkEntry(t, 2, 2, 50)}
	Recompute(decimal.Zero, entries)
	assert.Nil(t, Verify(decimal.Zero, entries))

	entries[1].RunningBalance = decimal.NewFromInt(1)
	assert.Same(t, entries[1], Verify(decimal.Zero, entries))
}
