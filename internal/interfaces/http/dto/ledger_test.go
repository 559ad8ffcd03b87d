package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		endOfDay  bool
		want      time.Time
		wantError bool
	}{
		{"date only", "2026-03-14", false, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), false},
		{"date only end of day", "2026-03-14", true, time.Date(2026, 3, 14, 23, 59, 59, 999999000, time.UTC), false},
		{"rfc3339 offset to utc", "2026-03-14T10:00:00+02:00", true, time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC), false},
		{"padded", " 2026-03-14 ", false, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), false},
		{"garbage", "14/03/2026", false, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in, tt.endOfDay)
			if tt.wantError {
				assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestPostEntryRequest_AmountAsStringOrNumber(t *testing.T) {
	for _, body := range []string{
		`{"entry_type":"deposit","amount":"120.50","transaction_date":"2026-03-14"}`,
		`{"entry_type":"DEPOSIT","amount":120.50,"transaction_date":"2026-03-14"}`,
	} {
		var req PostEntryRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))

		cmd, err := req.ToCommand(uuid.Nil, "key-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.EntryTypeDeposit, cmd.EntryType)
		assert.Equal(t, "120.5", cmd.Amount.String())
		assert.Equal(t, "key-1", cmd.IdempotencyKey)
		assert.Equal(t, 14, cmd.TransactionDate.Day())
	}
}

func TestOpenAccountRequest_ToCommand(t *testing.T) {
	var req OpenAccountRequest
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"bank","name":"Ops","currency":"eur","opening_balance":"10"}`), &req))

	user := uuid.New()
	cmd, err := req.ToCommand(user)
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountKindBank, cmd.Kind)
	assert.Equal(t, valueobject.EUR, cmd.Currency)
	assert.Equal(t, "10", cmd.OpeningBalance.String())
	assert.Equal(t, user, cmd.CreatedBy)

	req.Currency = "XYZ"
	_, err = req.ToCommand(user)
	assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
}

func TestUpdateEntryRequest_ToCommand(t *testing.T) {
	var req UpdateEntryRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
	_, err := req.ToCommand()
	assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))

	require.NoError(t, json.Unmarshal([]byte(`{"transaction_date":"2026-03-12","entry_type":"withdrawal"}`), &req))
	change, err := req.ToCommand()
	require.NoError(t, err)
	require.NotNil(t, change.TransactionDate)
	assert.Equal(t, 12, change.TransactionDate.Day())
	require.NotNil(t, change.EntryType)
	assert.Equal(t, ledger.EntryTypeWithdrawal, *change.EntryType)
	assert.Nil(t, change.Amount)
}

func TestEntryListQuery_ToFilter(t *testing.T) {
	f, err := EntryListQuery{From: "2026-03-01", To: "2026-03-31", Page: 2}.ToFilter()
	require.NoError(t, err)
	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.Equal(t, 23, f.To.Hour())
	assert.Equal(t, 2, f.Page)

	f, err = EntryListQuery{}.ToFilter()
	require.NoError(t, err)
	assert.Nil(t, f.From)
	assert.Nil(t, f.To)

	_, err = EntryListQuery{To: "soon"}.ToFilter()
	assert.Error(t, err)
}

func TestStatementQuery_Range(t *testing.T) {
	from, to, err := StatementQuery{From: "2026-03-01", To: "2026-03-01"}.Range()
	require.NoError(t, err)
	assert.True(t, to.After(from))
	assert.Equal(t, from.YearDay(), to.YearDay())
}
