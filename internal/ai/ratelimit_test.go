package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(limit int, clock *fakeClock) *RateLimiter {
	limiter := NewRateLimiter(limit)
	limiter.now = clock.Now
	limiter.sleep = clock.Sleep
	return limiter
}

// TestRateLimiterAdmitsUpToLimit проверяет, что вызовы в пределах лимита не ждут.
func TestRateLimiterAdmitsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(10, clock)

	for i := 0; i < 10; i++ {
		waited, err := limiter.Wait(context.Background())
		require.NoError(t, err)
		assert.Zero(t, waited)
		clock.Advance(50 * time.Millisecond)
	}

	assert.Equal(t, 10, limiter.InWindow())
	assert.Empty(t, clock.Slept())
}

// TestRateLimiterDelaysOverflowCall проверяет задержку вызова сверх лимита.
func TestRateLimiterDelaysOverflowCall(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(10, clock)
	first := clock.Now()

	for i := 0; i < 10; i++ {
		_, err := limiter.Wait(context.Background())
		require.NoError(t, err)
		clock.Advance(50 * time.Millisecond)
	}

	waited, err := limiter.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, time.Minute-500*time.Millisecond, waited)
	assert.False(t, clock.Now().Before(first.Add(time.Minute)), "overflow call must wait until the oldest call leaves the window")
	assert.Equal(t, 10, limiter.InWindow())
}

// TestRateLimiterWindowSlides проверяет освобождение окна со временем.
func TestRateLimiterWindowSlides(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(2, clock)

	_, _ = limiter.Wait(context.Background())
	_, _ = limiter.Wait(context.Background())
	clock.Advance(61 * time.Second)

	waited, err := limiter.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Equal(t, 1, limiter.InWindow())
}

// TestRateLimiterHonoursContext проверяет отмену ожидания через контекст.
func TestRateLimiterHonoursContext(t *testing.T) {
	limiter := NewRateLimiter(1)
	_, err := limiter.Wait(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
