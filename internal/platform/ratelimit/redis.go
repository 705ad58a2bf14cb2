package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests in Redis so the limit holds across server
// instances. Counters live under ratelimit:<key>:<unix-minute> and expire
// two windows after creation.
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) (bool, int, error) {
	window := time.Now().Unix() / WindowSeconds
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*WindowSeconds*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	return count <= limit, count, nil
}
