package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache := newSeedCache()
	seed := []byte("sixty-four bytes of deterministic seed material for this test!!!")

	require.NoError(t, cache.put(seed, time.Minute))
	assert.True(t, cache.active())

	got, ok := cache.get()
	require.True(t, ok)
	assert.Equal(t, seed, got)
}

func TestSeedCacheReturnsIndependentCopies(t *testing.T) {
	t.Parallel()

	cache := newSeedCache()
	require.NoError(t, cache.put([]byte("secret seed"), time.Minute))

	first, ok := cache.get()
	require.True(t, ok)

	// Zeroing the caller's copy must not corrupt the cache.
	for i := range first {
		first[i] = 0
	}

	second, ok := cache.get()
	require.True(t, ok)
	assert.Equal(t, []byte("secret seed"), second)
}

func TestSeedCacheExpiry(t *testing.T) {
	t.Parallel()

	cache := newSeedCache()
	require.NoError(t, cache.put([]byte("short lived"), time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	_, ok := cache.get()
	assert.False(t, ok)
	assert.False(t, cache.active())
}

func TestSeedCacheClear(t *testing.T) {
	t.Parallel()

	cache := newSeedCache()
	require.NoError(t, cache.put([]byte("to be cleared"), time.Minute))

	cache.clear()

	_, ok := cache.get()
	assert.False(t, ok)
	assert.False(t, cache.active())
}

func TestSeedCachePutReplacesPrevious(t *testing.T) {
	t.Parallel()

	cache := newSeedCache()
	require.NoError(t, cache.put([]byte("first"), time.Minute))
	require.NoError(t, cache.put([]byte("second"), time.Minute))

	got, ok := cache.get()
	require.True(t, ok)
	assert.Equal(t, []byte("second"), got)
}

func TestSeedCacheEmpty(t *testing.T) {
	t.Parallel()

	cache := newSeedCache()
	_, ok := cache.get()
	assert.False(t, ok)
	assert.False(t, cache.active())
}
