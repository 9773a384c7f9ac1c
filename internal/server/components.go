package server

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"example.com/ai-meal-planner/backend/internal/ai"
	"example.com/ai-meal-planner/backend/internal/cache"
	"example.com/ai-meal-planner/backend/internal/config"
	"example.com/ai-meal-planner/backend/internal/metrics"
	"example.com/ai-meal-planner/backend/internal/optimizer"
	"example.com/ai-meal-planner/backend/internal/planner"
)

// NewGenerator выбирает генератор планов: локальный мок или LLM за лимитером и ретраями.
func NewGenerator(cfg config.Config, audit planner.AuditLogger, m *metrics.Metrics, logger *slog.Logger) planner.Generator {
	if cfg.MockMode() {
		return planner.NewMockGenerator()
	}

	return planner.NewLiveGenerator(NewAIClient(cfg, m, logger), ai.Sampling{
		Temperature:      cfg.AI.Temperature,
		MaxTokens:        cfg.AI.MaxOutputTokens,
		TopP:             cfg.AI.TopP,
		FrequencyPenalty: cfg.AI.FrequencyPenalty,
		PresencePenalty:  cfg.AI.PresencePenalty,
	}, audit, logger)
}

// NewAIClient создает клиента провайдера, обернутого лимитером и ретраями.
func NewAIClient(cfg config.Config, m *metrics.Metrics, logger *slog.Logger) *ai.GuardedClient {
	tokens := ai.StaticToken(cfg.AI.APIKey)

	var client ai.Client
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		client = ai.NewGeminiClient(tokens, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.Timeout, cfg.AI.MaxOutputTokens)
	default:
		client = ai.NewGroqClient(tokens, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.Timeout, cfg.AI.MaxOutputTokens)
	}

	limiter := ai.NewRateLimiter(cfg.Planner.RateLimitPerMinute)
	retrier := ai.NewRetrier(cfg.Planner.MaxRetries, cfg.Planner.RetryBaseDelay, logger, m)
	return ai.NewGuardedClient(client, limiter, retrier, m, logger)
}

// NewCache создает кэш ответов выбранного бэкенда. Без клиента Redis используется память.
func NewCache(cfg config.Config, rdb *redis.Client) cache.Cache {
	if cfg.Planner.CacheBackend == config.CacheBackendRedis && rdb != nil {
		return cache.NewRedisCache(rdb, cfg.Redis.Prefix, cfg.Planner.CacheTTL)
	}
	return cache.NewMemoryCache(cfg.Planner.CacheTTL)
}

// NewRedisClient создает клиента Redis, если кэш настроен на Redis.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.Planner.CacheBackend != config.CacheBackendRedis {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// NewOptimizerConfig переносит настройки окружения поверх значений оптимизатора по умолчанию.
func NewOptimizerConfig(cfg config.OptimizerConfig) optimizer.Config {
	out := optimizer.DefaultConfig()
	out.MaxSuggestions = cfg.MaxSuggestions
	out.MinReplacementSavings = cfg.MinReplacementSavings
	out.BulkDiscount = cfg.BulkDiscount
	out.ExpensiveRatio = cfg.ExpensiveIngredientRate
	return out
}
