package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Cache is the delete-by-key side of the snapshot cache shared with the
// scoreboard service.
type Cache interface {
	// Delete removes the entry for (prefix, key). Missing entries are not an error.
	Delete(ctx context.Context, prefix, key string) error
}

type RedisCache struct {
	rdb redis.UniversalClient
}

func NewRedisCache(rdb redis.UniversalClient) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func Key(prefix, key string) string {
	return prefix + key
}

func (c *RedisCache) Delete(ctx context.Context, prefix, key string) error {
	if err := c.rdb.Del(ctx, Key(prefix, key)).Err(); err != nil {
		return fmt.Errorf("delete cache entry %s: %w", Key(prefix, key), err)
	}
	return nil
}
