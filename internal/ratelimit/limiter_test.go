package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCtx = context.Background()

func TestLimiter_AllowsUnderLimit(t *testing.T) {
	l := New()

	for i := 0; i < 5; i++ {
		remaining, retryAfter, err := l.Allow(testCtx, "test_key", 5, time.Minute)
		require.NoError(t, err)
		assert.Zero(t, retryAfter, "request %d should be admitted", i+1)
		assert.Equal(t, 4-i, remaining)
	}
}

func TestLimiter_BlocksOverLimit(t *testing.T) {
	l := New()

	for i := 0; i < 5; i++ {
		_, _, err := l.Allow(testCtx, "test_key", 5, time.Minute)
		require.NoError(t, err)
	}

	remaining, retryAfter, err := l.Allow(testCtx, "test_key", 5, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, remaining)
	assert.Positive(t, retryAfter)
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestLimiter_SeparateKeys(t *testing.T) {
	l := New()

	for i := 0; i < 5; i++ {
		_, _, err := l.Allow(testCtx, "key1", 5, time.Minute)
		require.NoError(t, err)
	}

	_, retryAfter, err := l.Allow(testCtx, "key2", 5, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, retryAfter, "a different key must not share the exhausted budget")
}

func TestLimiter_WindowRollover(t *testing.T) {
	l := New()
	window := 20 * time.Millisecond

	_, retryAfter, err := l.Allow(testCtx, "key", 1, window)
	require.NoError(t, err)
	require.Zero(t, retryAfter)

	_, retryAfter, err = l.Allow(testCtx, "key", 1, window)
	require.NoError(t, err)
	require.Positive(t, retryAfter)

	time.Sleep(window + 10*time.Millisecond)

	_, retryAfter, err = l.Allow(testCtx, "key", 1, window)
	require.NoError(t, err)
	assert.Zero(t, retryAfter, "budget must reset after the window elapses")
}

func TestLimiter_ConcurrentChecksAdmitExactlyOne(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	admitted := make(chan struct{}, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, retryAfter, err := l.Allow(testCtx, "1.2.3.4:/login", 1, time.Minute)
			require.NoError(t, err)
			if retryAfter == 0 {
				admitted <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(admitted)
	assert.Len(t, admitted, 1, "exactly one of two concurrent checks may pass with max=1")
}

func TestLimiter_Cleanup(t *testing.T) {
	l := New()
	window := 10 * time.Millisecond

	_, _, err := l.Allow(testCtx, "stale", 5, window)
	require.NoError(t, err)

	time.Sleep(2*window + 10*time.Millisecond)

	_, _, err = l.Allow(testCtx, "fresh", 5, time.Minute)
	require.NoError(t, err)

	l.Cleanup(2 * window)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.entries, "stale")
	assert.Contains(t, l.entries, "fresh")
}
