package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecomputeResult describes what a walk over a suffix changed
type RecomputeResult struct {
	// Changed are the entries whose running balance was rewritten, in order
	Changed []*LedgerEntry
	// Walked is the number of entries visited
	Walked int
	// Closing is the running balance after the last visited entry, or the
	// starting balance if the suffix was empty
	Closing decimal.Decimal
}

// Recompute walks suffix (already in chronological order) setting each entry's
// running balance to the previous balance plus its signed amount. start is the
// running balance of the entry just before the suffix, or the opening balance.
// Entries whose stored balance already matches are left untouched, so walking a
// consistent sequence changes nothing.
func Recompute(start decimal.Decimal, suffix []*LedgerEntry) RecomputeResult {
	running := start
	var changed []*LedgerEntry
	for _, e := range suffix {
		running = running.Add(e.SignedAmount)
		if !e.RunningBalance.Equal(running) {
			e.RunningBalance = running
			changed = append(changed, e)
		}
	}
	return RecomputeResult{
		Changed: changed,
		Walked:  len(suffix),
		Closing: running,
	}
}

// BalanceAt is opening plus the signed amounts of every entry dated at or before asOf.
func BalanceAt(opening decimal.Decimal, entries []*LedgerEntry, asOf time.Time) decimal.Decimal {
	total := opening
	for _, e := range entries {
		if !e.TransactionDate.After(asOf) {
			total = total.Add(e.SignedAmount)
		}
	}
	return total
}

// Verify returns the first entry in an ordered sequence whose running balance
// does not follow from its predecessor, or nil if the sequence is consistent.
func Verify(opening decimal.Decimal, ordered []*LedgerEntry) *LedgerEntry {
	running := opening
	for _, e := range ordered {
		running = running.Add(e.SignedAmount)
		if !e.RunningBalance.Equal(running) {
			return e
		}
	}
	return nil
}
