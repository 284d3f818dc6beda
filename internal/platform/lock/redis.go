package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Compare-and-delete so a claim is only dropped by its owner.
var releaseScript = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

type RedisReserver struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisReserver(rdb redis.UniversalClient, prefix string) *RedisReserver {
	return &RedisReserver{rdb: rdb, prefix: prefix}
}

func (r *RedisReserver) Reserve(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	// SET key value NX PX milliseconds
	ok, err := r.rdb.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisReserver) Release(ctx context.Context, key, token string) error {
	deleted, err := releaseScript.Run(ctx, r.rdb, []string{r.prefix + key}, token).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	if deleted == 0 {
		slog.Warn("Did not release reservation; it might have expired or been taken by another", "key", key)
	}
	return nil
}
