package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "mealplanner:cache:"

// RedisCache shares the response cache between server instances.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache создает кэш поверх Redis.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Get читает значение по ключу.
func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	payload, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		return false, err
	}

	return true, nil
}

// Set сохраняет значение с TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.prefix+key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Clear удаляет все ключи с префиксом кэша.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	keys := make([]string, 0, 100)

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == cap(keys) {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}

	return nil
}
