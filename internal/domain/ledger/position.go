package ledger

import (
	"sort"
	"time"
)

// Position is a place in an account's chronological order: by transaction
// date, then by insertion sequence for entries sharing a date.
type Position struct {
	Date     time.Time
	Sequence int64
}

// StartPosition sorts before every entry
var StartPosition = Position{}

// Compare returns -1, 0 or +1
func (p Position) Compare(other Position) int {
	if c := p.Date.Compare(other.Date); c != 0 {
		return c
	}
	switch {
	case p.Sequence < other.Sequence:
		return -1
	case p.Sequence > other.Sequence:
		return 1
	}
	return 0
}

// Before reports whether p sorts strictly before other
func (p Position) Before(other Position) bool {
	return p.Compare(other) < 0
}

// IsStart reports whether p is the zero position
func (p Position) IsStart() bool {
	return p.Date.IsZero() && p.Sequence == 0
}

// EarlierOf returns the position that sorts first
func EarlierOf(a, b Position) Position {
	if b.Before(a) {
		return b
	}
	return a
}

// SortEntries orders entries by position in place
func SortEntries(entries []*LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Position().Before(entries[j].Position())
	})
}
