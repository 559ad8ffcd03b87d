package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// errHeld is returned by a single acquire attempt while another holder owns the key
var errHeld = errors.New("account lock held")

// releaseScript deletes the key only if it still carries our token, so a
// holder whose lease expired cannot free a lock someone else now owns.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAccountLocker serializes account mutations across instances with a
// SET NX PX lease per account. Waiters poll with exponential backoff until
// the caller's context ends.
type RedisAccountLocker struct {
	client       redis.UniversalClient
	keyPrefix    string
	ttl          time.Duration
	retryInitial time.Duration
	retryMax     time.Duration
	logger       *zap.Logger
}

// NewRedisAccountLocker creates a locker over client
func NewRedisAccountLocker(client redis.UniversalClient, cfg config.LockConfig, logger *zap.Logger) *RedisAccountLocker {
	l := &RedisAccountLocker{
		client:       client,
		keyPrefix:    cfg.KeyPrefix,
		ttl:          cfg.TTL,
		retryInitial: cfg.RetryInitial,
		retryMax:     cfg.RetryMax,
		logger:       logger,
	}
	if l.keyPrefix == "" {
		l.keyPrefix = "ledger:lock:"
	}
	if l.ttl <= 0 {
		l.ttl = 30 * time.Second
	}
	if l.retryInitial <= 0 {
		l.retryInitial = 10 * time.Millisecond
	}
	if l.retryMax <= 0 {
		l.retryMax = 250 * time.Millisecond
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

// Key returns the redis key for an account
func (l *RedisAccountLocker) Key(tenantID, accountID uuid.UUID) string {
	return l.keyPrefix + appledger.AccountLockKey(tenantID, accountID)
}

// Lock implements ledger.AccountLocker
func (l *RedisAccountLocker) Lock(ctx context.Context, tenantID, accountID uuid.UUID) (func(), error) {
	key := l.Key(tenantID, accountID)
	token := uuid.NewString()

	acquire := func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			return backoff.Permanent(fmt.Errorf("acquire account lock %s: %w", key, err))
		}
		if !ok {
			return errHeld
		}
		return nil
	}

	if err := backoff.Retry(acquire, backoff.WithContext(l.newBackOff(), ctx)); err != nil {
		if errors.Is(err, errHeld) {
			err = ctx.Err()
		}
		return nil, appledger.LockWaitError(err)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}, nil
}

func (l *RedisAccountLocker) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.retryInitial
	b.MaxInterval = l.retryMax
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0 // bounded by the caller's context
	b.Reset()
	return b
}

// release runs detached from the request context so a cancelled caller still frees the key
func (l *RedisAccountLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		l.logger.Warn("Failed to release account lock; it expires with its lease",
			zap.String("key", key), zap.Duration("ttl", l.ttl), zap.Error(err))
		return
	}
	if deleted == 0 {
		l.logger.Warn("Account lock lease expired before release", zap.String("key", key))
	}
}

// Ping checks the redis connection
func (l *RedisAccountLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

var _ appledger.AccountLocker = (*RedisAccountLocker)(nil)
