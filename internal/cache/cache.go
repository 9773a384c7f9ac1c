package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

const DefaultTTL = 30 * time.Minute

// Cache stores JSON-encoded responses keyed by a canonical request key.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Clear(ctx context.Context) error
}

// Key строит стабильный ключ из вида запроса и его значимых полей.
func Key(kind string, parts ...any) string {
	payload, err := json.Marshal(parts)
	if err != nil {
		return kind + ":" + strings.TrimSpace(err.Error())
	}

	sum := sha256.Sum256(payload)
	return kind + ":" + hex.EncodeToString(sum[:])
}
