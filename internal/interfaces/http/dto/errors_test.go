package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{shared.CodeAccountNotFound, http.StatusNotFound},
		{shared.CodeEntryNotFound, http.StatusNotFound},
		{shared.CodeInvalidAmount, http.StatusBadRequest},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{shared.CodeAccountInactive, http.StatusUnprocessableEntity},
		{shared.CodeConcurrencyConflict, http.StatusConflict},
		{shared.CodeStorageFailure, http.StatusServiceUnavailable},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponse_Retryable(t *testing.T) {
	conflict := NewErrorResponse(shared.CodeConcurrencyConflict, "busy", "req-1")
	assert.True(t, conflict.Error.Retryable)
	assert.Equal(t, "req-1", conflict.Error.RequestID)

	notFound := NewErrorResponse(shared.CodeAccountNotFound, "missing", "")
	assert.False(t, notFound.Error.Retryable)

	raw, err := json.Marshal(notFound)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ACCOUNT_NOT_FOUND","message":"missing"}}`, string(raw))
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-2", []ValidationDetail{
		{Field: "amount", Message: "This field is required"},
	})
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	empty := NewSuccessResponseWithMeta([]int{}, 0, 1, 20)
	assert.Equal(t, 0, empty.Meta.TotalPages)
}
