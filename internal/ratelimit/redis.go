package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// checkAndIncrScript enforces the ceiling atomically server-side: the
// counter is only incremented while below the limit, and the window TTL is
// set on the first hit.
var checkAndIncrScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if current >= limit then
  return 1
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// RedisLimiter counts hits in redis so the ceiling holds across processes.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter constructs a RedisLimiter over an existing client.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// CheckAndIncrement implements Limiter.
func (l *RedisLimiter) CheckAndIncrement(ctx context.Context, key string, limit int64) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	res, err := checkAndIncrScript.Run(ctx, l.client, []string{key}, limit, Window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis check %s: %w", key, err)
	}
	return res == 1, nil
}
