package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// Everything done through the repositories handed to fn is committed together
// when fn returns nil and rolled back otherwise, including on context cancellation.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	AccountRepo() ledger.AccountRepository
	EntryRepo() ledger.EntryRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Used in tests with in-memory repositories.
type NoOpTransactionScope struct {
	accountRepo ledger.AccountRepository
	entryRepo   ledger.EntryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(accountRepo ledger.AccountRepository, entryRepo ledger.EntryRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// AccountRepo returns the account repository.
func (s *NoOpTransactionScope) AccountRepo() ledger.AccountRepository {
	return s.accountRepo
}

// EntryRepo returns the entry repository.
func (s *NoOpTransactionScope) EntryRepo() ledger.EntryRepository {
	return s.entryRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
