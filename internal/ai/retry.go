package ai

import (
	"context"
	"log/slog"
	"time"

	"example.com/ai-meal-planner/backend/internal/metrics"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// Retrier re-issues a failed call with linear backoff (baseDelay × attempt).
// Only errors accepted by IsRetryable are retried.
type Retrier struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRetrier создает контроллер повторов.
func NewRetrier(maxRetries int, baseDelay time.Duration, logger *slog.Logger, m *metrics.Metrics) *Retrier {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Retrier{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
		metrics:    m,
		sleep:      sleepContext,
	}
}

// Do выполняет операцию, повторяя ее при временных ошибках не более maxRetries раз.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxRetries+1; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt > r.maxRetries {
			break
		}

		delay := r.baseDelay * time.Duration(attempt)
		r.logger.Warn("upstream call failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", r.maxRetries),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)
		r.metrics.IncRetry()

		if err := r.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}

	return lastErr
}
