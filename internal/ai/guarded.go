package ai

import (
	"context"
	"log/slog"
	"time"

	"example.com/ai-meal-planner/backend/internal/metrics"
)

type providerNamer interface {
	Provider() string
}

// GuardedClient wraps a Client with the rate limiter and the retry controller.
// Every attempt passes the limiter before reaching the network.
type GuardedClient struct {
	client   Client
	provider string
	limiter  *RateLimiter
	retrier  *Retrier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewGuardedClient оборачивает клиента ограничителем частоты и повторами.
func NewGuardedClient(client Client, limiter *RateLimiter, retrier *Retrier, m *metrics.Metrics, logger *slog.Logger) *GuardedClient {
	if logger == nil {
		logger = slog.Default()
	}

	provider := "unknown"
	if named, ok := client.(providerNamer); ok {
		provider = named.Provider()
	}

	return &GuardedClient{
		client:   client,
		provider: provider,
		limiter:  limiter,
		retrier:  retrier,
		metrics:  m,
		logger:   logger,
	}
}

// Provider возвращает имя провайдера обернутого клиента.
func (c *GuardedClient) Provider() string {
	return c.provider
}

// Chat выполняет запрос с учетом лимита и политики повторов.
func (c *GuardedClient) Chat(ctx context.Context, request Request) (Response, error) {
	var response Response

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		waited, err := c.limiter.Wait(ctx)
		if err != nil {
			return err
		}
		if waited > 0 {
			c.metrics.IncLimiterWait()
			c.logger.Info("rate limit reached, call delayed", slog.Duration("waited", waited))
		}

		start := time.Now()
		result, err := c.client.Chat(ctx, request)
		c.metrics.ObserveUpstreamCall(c.provider, time.Since(start).Seconds(), err)
		response = result
		return err
	})

	return response, err
}
