package httpx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowRespectsBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 3)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "burst exhausted")

	stats := limiter.Stats()
	assert.Equal(t, int64(3), stats.AllowedRequests)
	assert.Equal(t, int64(1), stats.BlockedRequests)
}

func TestTokenBucketRefills(t *testing.T) {
	limiter := NewTokenBucketLimiter(100, 1)

	require.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, limiter.Allow(), "tokens accrue over time")
}

func TestTokenBucketWaitBlocksUntilToken(t *testing.T) {
	limiter := NewTokenBucketLimiter(20, 1)
	require.True(t, limiter.Allow())

	start := time.Now()
	err := limiter.Wait(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestTokenBucketWaitHonorsContext(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.1, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenBucketWaitIsSafeForConcurrentUse(t *testing.T) {
	limiter := NewTokenBucketLimiter(200, 1)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = limiter.Wait(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "waiter %d", i)
	}
	assert.Equal(t, int64(10), limiter.Stats().AllowedRequests)
}

func TestMinIntervalLimiter(t *testing.T) {
	limiter := NewMinIntervalLimiter(40 * time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond,
		"consecutive admissions are spaced by the interval")
}
