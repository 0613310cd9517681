package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/larkbot/config"
	"github.com/mohammad-safakhou/larkbot/internal/dedup/inmemory"
	redis_dedup "github.com/mohammad-safakhou/larkbot/internal/dedup/redis"
)

// Cache answers whether a message identifier has been seen within the
// deduplication window. A miss records the identifier as a side effect.
type Cache interface {
	IsDuplicate(ctx context.Context, messageID string) (bool, error)
}

type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
	RedisStore    StoreType = "redis"
)

// NewCache builds the configured cache implementation.
func NewCache(cfg config.DedupConfig) (Cache, error) {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = 60 * time.Second
	}
	switch StoreType(cfg.Store) {
	case InMemoryStore, "":
		return inmemory.NewCache(cfg.Capacity, expiry), nil
	case RedisStore:
		return redis_dedup.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, expiry), nil
	default:
		return nil, fmt.Errorf("unsupported dedup store: %s", cfg.Store)
	}
}
