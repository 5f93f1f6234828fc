package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script that reserves the next slot for an operation atomically.
// KEYS[1] holds the next free slot in unix milliseconds.
// Returns how many milliseconds the caller has to wait.
const reserveSlotLuaScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local interval = tonumber(ARGV[2])

local next = tonumber(redis.call("GET", key) or "0")
local slot = now
if next > now then
    slot = next
end

redis.call("SET", key, tostring(slot + interval), "PX", tostring((slot - now) + interval * 2))
return slot - now
`

// RedisLimiter shares the per-operation spacing between processes. Every
// worker that talks to the same provider points at the same key prefix.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	script *redis.Script
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRedisLimiter creates a limiter whose state lives under prefix in Redis.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "leadgen:ratelimit"
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		script: redis.NewScript(reserveSlotLuaScript),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// NewRedisLimiterFromURL connects to Redis and returns a limiter.
func NewRedisLimiterFromURL(redisURL, prefix string) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisLimiter(redis.NewClient(opts), prefix), nil
}

// Wait reserves the next slot for op and sleeps until it arrives.
func (l *RedisLimiter) Wait(ctx context.Context, op string, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	key := fmt.Sprintf("%s:%s", l.prefix, op)
	waitMs, err := l.script.Run(ctx, l.client, []string{key},
		l.now().UnixMilli(), interval.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("rate limiter reserve %s: %w", op, err)
	}
	return l.sleep(ctx, time.Duration(waitMs)*time.Millisecond)
}
