package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedStore(t *testing.T) (*InMemoryIdempotencyStore, *time.Time) {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryIdempotencyStore(time.Hour)
	store.now = func() time.Time { return now }
	t.Cleanup(func() { _ = store.Close() })
	return store, &now
}

func TestInMemoryIdempotencyStore_FirstWriterWins(t *testing.T) {
	store, _ := newClockedStore(t)
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "t1:a1:key-1", "entry-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "t1:a1:key-1", "entry-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	value, ok, err := store.Lookup(ctx, "t1:a1:key-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "entry-1", value)

	_, ok, err = store.Lookup(ctx, "t1:a1:other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store, now := newClockedStore(t)
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "k", "entry-1", time.Minute)
	require.NoError(t, err)

	*now = now.Add(time.Minute)
	_, ok, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "a key expires exactly at its ttl")

	isNew, err := store.MarkProcessed(ctx, "k", "entry-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)

	value, _, _ := store.Lookup(ctx, "k")
	assert.Equal(t, "entry-2", value)
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store, now := newClockedStore(t)
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short", "x", time.Second)
	_, _ = store.MarkProcessed(ctx, "long", "y", time.Hour)
	require.Equal(t, 2, store.Size())

	*now = now.Add(time.Minute)
	store.sweep()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store, _ := newClockedStore(t)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.MarkProcessed(context.Background(), "same", "v", time.Hour); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore(0)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
