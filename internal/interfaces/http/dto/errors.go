package dto

import (
	"net/http"

	"github.com/erp/ledger/internal/domain/shared"
)

// Transport-level error codes. Ledger codes are passed through from the domain unchanged.
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeAccountNotFound:     http.StatusNotFound,
	shared.CodeEntryNotFound:       http.StatusNotFound,
	shared.CodeInvalidInput:        http.StatusBadRequest,
	shared.CodeInvalidAmount:       http.StatusBadRequest,
	shared.CodeAccountInactive:     http.StatusUnprocessableEntity,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeStorageFailure:      http.StatusServiceUnavailable,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the status for code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsRetryableCode reports whether a client may retry a request that failed with code
func IsRetryableCode(code string) bool {
	switch code {
	case shared.CodeConcurrencyConflict, shared.CodeStorageFailure, ErrCodeUnavailable:
		return true
	}
	return false
}
