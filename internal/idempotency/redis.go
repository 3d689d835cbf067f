package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "wallet:seen:"

var _ Cache = (*RedisCache)(nil)

// RedisCache keeps one key per committed ref id with a TTL.
type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// ConnectRedis opens and pings a client for cfg.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := rdb.Ping(ctx).Err()
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}

func seenKey(refID string) string { return keyPrefix + refID }

func (c *RedisCache) AnySeen(ctx context.Context, refIDs []string) (bool, error) {
	keys := make([]string, len(refIDs))
	for i, ref := range refIDs {
		keys[i] = seenKey(ref)
	}

	n, err := c.rdb.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}

	return n > 0, nil
}

func (c *RedisCache) MarkSeen(ctx context.Context, refIDs []string) error {
	pipe := c.rdb.Pipeline()
	for _, ref := range refIDs {
		pipe.Set(ctx, seenKey(ref), 1, c.ttl)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis set seen: %w", err)
	}

	return nil
}
