package redis_dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache deduplicates message identifiers through Redis so that multiple bot
// replicas share one window. Expiry is delegated to key TTLs; there is no
// capacity bound beyond what Redis itself enforces.
type Cache struct {
	client *redis.Client
	expiry time.Duration
}

func NewCache(addr, password string, db int, expiry time.Duration) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{client: rdb, expiry: expiry}
}

// IsDuplicate records messageID with SET NX; a failed set means the key
// already exists inside the expiry window.
func (c *Cache) IsDuplicate(ctx context.Context, messageID string) (bool, error) {
	ok, err := c.client.SetNX(ctx, "dedup:msg:"+messageID, 1, c.expiry).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}
