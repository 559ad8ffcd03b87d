package event

import (
	"encoding/json"
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerEventSerializer_KnowsEveryEvent(t *testing.T) {
	s := NewLedgerEventSerializer()
	for _, typ := range NewAuditLogHandler(nopLogger()).EventTypes() {
		assert.True(t, s.IsRegistered(typ), typ)
	}
	assert.False(t, s.IsRegistered("InvoicePaid"))
}

func TestEventSerializer_Envelope(t *testing.T) {
	a := testAccount(t)
	ev := testPosted(t, a)

	data, err := NewLedgerEventSerializer().Serialize(ev)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, ev.EventID(), env.EventID)
	assert.Equal(t, ledger.EventTypeLedgerEntryPosted, env.EventType)
	assert.Equal(t, ledger.AggregateTypeAccount, env.AggregateType)
	assert.Equal(t, a.ID, env.AggregateID)
	assert.Equal(t, a.TenantID, env.TenantID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "150", payload["running_balance"])
	assert.Equal(t, "deposit", payload["entry_type"])
}

func TestEventSerializer_Deserialize(t *testing.T) {
	s := NewLedgerEventSerializer()
	a := testAccount(t)
	ev := testPosted(t, a)

	data, err := s.Serialize(ev)
	require.NoError(t, err)

	decoded, err := s.Deserialize(data)
	require.NoError(t, err)

	posted, ok := decoded.(*ledger.LedgerEntryPostedEvent)
	require.True(t, ok)
	assert.Equal(t, ev.EventID(), posted.EventID())
	assert.Equal(t, ev.EntryID, posted.EntryID)
	assert.True(t, ev.SignedAmount.Equal(posted.SignedAmount))
	assert.True(t, ev.AccountBalance.Equal(posted.AccountBalance))
	assert.True(t, ev.TransactionDate.Equal(posted.TransactionDate))
	assert.Equal(t, 1, posted.Recomputed)
}

func TestEventSerializer_DeserializeErrors(t *testing.T) {
	s := NewLedgerEventSerializer()

	_, err := s.Deserialize([]byte("{not json"))
	assert.ErrorContains(t, err, "unmarshal envelope")

	_, err = s.Deserialize([]byte(`{"event_type":"InvoicePaid","payload":{}}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = s.Deserialize([]byte(`{"event_type":"AccountClosed","payload":{"final_balance":[]}}`))
	assert.ErrorContains(t, err, "unmarshal AccountClosed payload")
}
