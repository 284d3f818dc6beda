package queue

import (
	"context"
	"fmt"
	"log/slog"

	"judge_gate/internal/domain/model"
	"judge_gate/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	slog.Info("Successfully connected to Redis", "addr", cfg.RedisAddr)
	return rdb, nil
}

func CloseRedis(rdb *redis.Client) {
	if rdb != nil {
		rdb.Close()
		slog.Info("Redis connection closed")
	}
}

// RedisPipeline pushes grading messages onto a Redis list consumed with
// BRPOP by the grader.
type RedisPipeline struct {
	rdb       redis.UniversalClient
	queueName string
}

func NewRedisPipeline(rdb redis.UniversalClient, queueName string) *RedisPipeline {
	return &RedisPipeline{rdb: rdb, queueName: queueName}
}

func (p *RedisPipeline) Enqueue(ctx context.Context, run *model.Run) error {
	body, err := Encode(NewMessage(run))
	if err != nil {
		return err
	}
	if err := p.rdb.LPush(ctx, p.queueName, body).Err(); err != nil {
		return fmt.Errorf("failed to push run %d to Redis queue %s: %w", run.ID, p.queueName, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (p *RedisPipeline) Close() error { return nil }
