package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes that mean "another transaction got in the way"
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateUniqueViolation      = "23505"
)

// classifyError maps a driver error onto the domain error taxonomy.
// notFound is returned for gorm.ErrRecordNotFound; context errors pass through.
func classifyError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if notFound != nil {
			return notFound
		}
		return shared.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return shared.WrapDomainError(shared.CodeConcurrencyConflict, "Account is being modified by another operation", err)
		case sqlStateUniqueViolation:
			return shared.WrapDomainError(shared.CodeConcurrencyConflict, "Conflicting write on "+pgErr.ConstraintName, err)
		}
	}
	return shared.WrapDomainError(shared.CodeStorageFailure, "Storage operation failed", err)
}
