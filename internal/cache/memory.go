package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache. Values are stored encoded so
// callers never share mutable state with the cache.
type MemoryCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache создает кэш в памяти с заданным TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get читает значение по ключу; просроченная запись удаляется и считается отсутствующей.
func (c *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(entry.value, dst); err != nil {
		return false, err
	}

	return true, nil
}

// Set сохраняет значение с TTL кэша.
func (c *MemoryCache) Set(_ context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{value: payload, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Clear удаляет все записи.
func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]memoryEntry)
	return nil
}

// Len возвращает число записей, включая еще не вычищенные просроченные.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
