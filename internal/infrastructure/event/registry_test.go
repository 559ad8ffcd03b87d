package event

import (
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_TypedBeforeWildcard(t *testing.T) {
	r := NewHandlerRegistry()
	typed := newRecordingHandler()
	wildcard := newRecordingHandler()

	r.Register(wildcard)
	r.Register(typed, ledger.EventTypeLedgerEntryPosted, ledger.EventTypeLedgerEntryDeleted)

	assert.Equal(t, []shared.EventHandler{typed, wildcard}, r.HandlersFor(ledger.EventTypeLedgerEntryPosted))
	assert.Equal(t, []shared.EventHandler{typed, wildcard}, r.HandlersFor(ledger.EventTypeLedgerEntryDeleted))
	assert.Equal(t, []shared.EventHandler{wildcard}, r.HandlersFor(ledger.EventTypeAccountClosed))
}

func TestHandlerRegistry_RegisterTwiceIsNoop(t *testing.T) {
	r := NewHandlerRegistry()
	h := newRecordingHandler()

	r.Register(h, ledger.EventTypeAccountOpened)
	r.Register(h, ledger.EventTypeAccountOpened)
	r.Register(h)
	r.Register(h)

	assert.Len(t, r.HandlersFor(ledger.EventTypeAccountOpened), 2)
	assert.Len(t, r.HandlersFor(ledger.EventTypeAccountClosed), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	r := NewHandlerRegistry()
	keep := newRecordingHandler()
	drop := newRecordingHandler()

	r.Register(keep, ledger.EventTypeAccountOpened)
	r.Register(drop, ledger.EventTypeAccountOpened, ledger.EventTypeAccountClosed)
	r.Register(drop)
	r.Unregister(drop)

	assert.Equal(t, []shared.EventHandler{keep}, r.HandlersFor(ledger.EventTypeAccountOpened))
	assert.Empty(t, r.HandlersFor(ledger.EventTypeAccountClosed))
	assert.NotContains(t, r.handlers, ledger.EventTypeAccountClosed)
}
