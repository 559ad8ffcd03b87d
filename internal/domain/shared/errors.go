package shared

import "errors"

// Error codes understood by the ledger engine and its callers.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeEntryNotFound       = "ENTRY_NOT_FOUND"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeAccountInactive     = "ACCOUNT_INACTIVE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeStorageFailure      = "STORAGE_FAILURE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match sentinel values with errors.Is even when the message differs.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error carrying an underlying cause.
// The cause is kept for logging and is never part of Error().
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrAccountNotFound     = NewDomainError(CodeAccountNotFound, "Account not found")
	ErrEntryNotFound       = NewDomainError(CodeEntryNotFound, "Ledger entry not found")
	ErrInvalidAmount       = NewDomainError(CodeInvalidAmount, "Amount must be a finite, non-negative value")
	ErrAccountInactive     = NewDomainError(CodeAccountInactive, "Account is closed; only adjustment entries are accepted")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Account is being modified by another operation")
	ErrStorageFailure      = NewDomainError(CodeStorageFailure, "Storage operation failed")
)

// ErrorCode returns the domain code carried by err, or "" if err is not a DomainError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	switch ErrorCode(err) {
	case CodeConcurrencyConflict, CodeStorageFailure:
		return true
	}
	return false
}
