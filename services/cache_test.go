package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCache_SetAndGet(t *testing.T) {
	cache := NewInMemoryCache(10, time.Minute)
	defer cache.Stop()

	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	err := cache.Set(ctx, "test-key", payload{Name: "chapter one", Count: 3}, time.Minute)
	require.NoError(t, err)

	var got payload
	found, err := cache.Get(ctx, "test-key", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "chapter one", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestInMemoryCache_MissIsNotAnError(t *testing.T) {
	cache := NewInMemoryCache(10, time.Minute)
	defer cache.Stop()

	var got string
	found, err := cache.Get(context.Background(), "never-set", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryCache_Expiry(t *testing.T) {
	cache := NewInMemoryCache(10, time.Minute)
	defer cache.Stop()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "short-lived", "value", 5*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	var got string
	found, err := cache.Get(ctx, "short-lived", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryCache_Delete(t *testing.T) {
	cache := NewInMemoryCache(10, time.Minute)
	defer cache.Stop()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, cache.Delete(ctx, "key"))

	var got string
	found, err := cache.Get(ctx, "key", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryCache_DeletePattern(t *testing.T) {
	cache := NewInMemoryCache(10, time.Minute)
	defer cache.Stop()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "tree:story-1:full", "a", time.Minute))
	require.NoError(t, cache.Set(ctx, "tree:story-1:structure", "b", time.Minute))
	require.NoError(t, cache.Set(ctx, "tree:story-2:full", "c", time.Minute))

	require.NoError(t, cache.DeletePattern(ctx, "tree:story-1:*"))

	var got string
	found, err := cache.Get(ctx, "tree:story-1:full", &got)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = cache.Get(ctx, "tree:story-1:structure", &got)
	require.NoError(t, err)
	assert.False(t, found)

	// Other stories are untouched
	found, err = cache.Get(ctx, "tree:story-2:full", &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestInMemoryCache_Clear(t *testing.T) {
	cache := NewInMemoryCache(10, time.Minute)
	defer cache.Stop()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, cache.Clear(ctx))

	stats := cache.GetStats()
	assert.Equal(t, 0, stats.Size)
}

func TestInMemoryCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := NewInMemoryCache(2, time.Minute)
	defer cache.Stop()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "first", 1, time.Minute))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, cache.Set(ctx, "second", 2, time.Minute))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, cache.Set(ctx, "third", 3, time.Minute))

	var got int
	found, err := cache.Get(ctx, "first", &got)
	require.NoError(t, err)
	assert.False(t, found, "oldest entry should be evicted")

	found, err = cache.Get(ctx, "third", &got)
	require.NoError(t, err)
	assert.True(t, found)

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestInMemoryCache_OverwriteAtCapacityDoesNotEvict(t *testing.T) {
	cache := NewInMemoryCache(2, time.Minute)
	defer cache.Stop()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "first", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "second", 2, time.Minute))

	// Rewriting an existing key at capacity must not push anything out
	require.NoError(t, cache.Set(ctx, "first", 10, time.Minute))

	var got int
	found, err := cache.Get(ctx, "first", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 10, got)

	found, err = cache.Get(ctx, "second", &got)
	require.NoError(t, err)
	assert.True(t, found)

	stats := cache.GetStats()
	assert.Equal(t, int64(0), stats.Evictions)
	assert.Equal(t, 2, stats.Size)
}

func TestInMemoryCache_Stats(t *testing.T) {
	cache := NewInMemoryCache(10, time.Minute)
	defer cache.Stop()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))

	var got string
	_, _ = cache.Get(ctx, "key", &got)
	_, _ = cache.Get(ctx, "missing", &got)

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
	assert.Equal(t, 1, stats.Size)
}
