package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a replayable key is remembered when the
// deployment does not configure one
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore maps client idempotency keys to the id of the entry they
// produced. Keys are already scoped to tenant and account by the caller.
type IdempotencyStore interface {
	// MarkProcessed stores result under key unless the key is present.
	// It reports whether this call did the store.
	MarkProcessed(ctx context.Context, key, result string, ttl time.Duration) (bool, error)
	Lookup(ctx context.Context, key string) (result string, found bool, err error)
	Close() error
}
