package ai

import (
	"context"
	"sync"
	"time"
)

const (
	defaultRateLimitPerMinute = 10
	rateLimitWindow           = time.Minute
)

// RateLimiter is a sliding-window admission control for outbound calls. It
// never rejects a call: when the window is full the caller is delayed until
// the oldest call leaves the window.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	calls []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter создает ограничитель на заданное число вызовов в минуту.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = defaultRateLimitPerMinute
	}

	return &RateLimiter{
		limit:  perMinute,
		window: rateLimitWindow,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Wait блокирует вызывающего, пока в окне не освободится место, и фиксирует вызов.
// Возвращает суммарное время ожидания.
func (l *RateLimiter) Wait(ctx context.Context) (time.Duration, error) {
	var waited time.Duration

	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.calls) < l.limit {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return waited, nil
		}
		wait := l.calls[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// InWindow возвращает число вызовов в текущем окне.
func (l *RateLimiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return len(l.calls)
}

func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	idx := 0
	for idx < len(l.calls) && !l.calls[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.calls = append(l.calls[:0], l.calls[idx:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
