package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisStore is the fixed-window Store for multi-instance deployments:
// INCR plus EXPIRE on the first hit in a window, key TTL as retry-after.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, max int, window time.Duration) (int, time.Duration, error) {
	const op = "ratelimit.RedisStore.Allow"

	rkey := redisKeyPrefix + key

	count, err := s.client.Incr(ctx, rkey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	// First hit in the window owns the expiry.
	if count == 1 {
		if err := s.client.Expire(ctx, rkey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if count > int64(max) {
		retryAfter, err := s.client.TTL(ctx, rkey).Result()
		if err != nil {
			return 0, 0, fmt.Errorf("%s: %w", op, err)
		}
		if retryAfter < 0 {
			retryAfter = window
		}
		return 0, retryAfter, nil
	}

	return max - int(count), 0, nil
}
