package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountLocker serializes mutations of one account. Different accounts never block each other.
type AccountLocker interface {
	// Lock blocks until the caller holds the account or ctx is done.
	// The returned release func must be called exactly once.
	Lock(ctx context.Context, tenantID, accountID uuid.UUID) (release func(), err error)
}

// AccountLockKey is the key an account is locked under
func AccountLockKey(tenantID, accountID uuid.UUID) string {
	return tenantID.String() + ":" + accountID.String()
}

// LockWaitError maps a context error seen while waiting for a lock.
// A deadline means the account stayed busy and is reported as a retryable conflict.
func LockWaitError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.WrapDomainError(shared.CodeConcurrencyConflict,
			"Timed out waiting for the account lock", err)
	}
	return err
}

// KeyedMutexLocker is an in-process AccountLocker: one mutex per account key,
// created on demand and dropped when nobody holds or waits for it.
type KeyedMutexLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutexLocker creates an empty KeyedMutexLocker
func NewKeyedMutexLocker() *KeyedMutexLocker {
	return &KeyedMutexLocker{locks: make(map[string]*keyedLock)}
}

// Lock implements AccountLocker
func (l *KeyedMutexLocker) Lock(ctx context.Context, tenantID, accountID uuid.UUID) (func(), error) {
	key := AccountLockKey(tenantID, accountID)

	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, kl)
		return nil, LockWaitError(ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.unref(key, kl)
		})
	}, nil
}

func (l *KeyedMutexLocker) unref(key string, kl *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Held returns the number of account keys currently held or waited on
func (l *KeyedMutexLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// RowLockOnly is an AccountLocker that does nothing; exclusivity comes solely
// from the row lock the transaction takes on the account.
type RowLockOnly struct{}

// Lock implements AccountLocker
func (RowLockOnly) Lock(context.Context, uuid.UUID, uuid.UUID) (func(), error) {
	return func() {}, nil
}

var _ AccountLocker = (*KeyedMutexLocker)(nil)
var _ AccountLocker = RowLockOnly{}
