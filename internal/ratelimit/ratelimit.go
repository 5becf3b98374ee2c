package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter gates per-campaign send rate. Allow reports whether one more
// send may go out now for the given campaign.
type Limiter interface {
	Allow(ctx context.Context, campaignID, limit int) bool
}

// RedisLimiter is a sliding window rate limiter over a Redis sorted set.
// A Lua script atomically trims expired entries, checks the count and
// records the new send, so concurrent batch runs share one budget.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
}

var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, window / 1000 + 1)
    return 1
else
    return 0
end
`)

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, script: slidingWindowScript}
}

func sendKey(campaignID int) string {
	return fmt.Sprintf("sendrate:campaign:%d", campaignID)
}

// Allow checks the campaign's per-second send budget. A limit of zero or
// less means unlimited. Redis failures fail open so a limiter outage
// never stops delivery.
func (l *RedisLimiter) Allow(ctx context.Context, campaignID, limit int) bool {
	if limit <= 0 {
		return true
	}

	now := time.Now().UnixMilli()
	window := int64(1000)
	member := fmt.Sprintf("%d:%d", now, time.Now().UnixNano()%10000)

	result, err := l.script.Run(ctx, l.client, []string{sendKey(campaignID)},
		now, window, limit, member,
	).Int64()
	if err != nil {
		log.Println("⚠️ rate limiter script failed:", err)
		return true
	}
	return result == 1
}

// NoopLimiter allows everything. Used when REDIS_URL is not configured.
type NoopLimiter struct{}

func (NoopLimiter) Allow(ctx context.Context, campaignID, limit int) bool { return true }
