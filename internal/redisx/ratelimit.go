package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window, counts it and admits the request only
// while the count is under the limit. All in one round trip.
// KEYS[1]=key ARGV: now_ms, window_start_ms, window_ms, member, limit
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowMs = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)
local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, windowMs)
  return count + 1
end
return -1
`)

// RateLimiter allows at most Limit calls per caller within Window.
type RateLimiter struct {
	RDB    *redis.Client
	Scope  string
	Limit  int
	Window time.Duration
}

func (l *RateLimiter) Allow(ctx context.Context, caller string) (bool, error) {
	now := time.Now()
	nowMs := now.UnixMilli()
	windowMs := l.Window.Milliseconds()
	member := fmt.Sprintf("%d-%d", nowMs, now.UnixNano())

	n, err := slidingWindow.Run(ctx, l.RDB, []string{RateLimitKey(l.Scope, caller)},
		nowMs, nowMs-windowMs, windowMs, member, l.Limit).Int()
	if err != nil {
		return false, err
	}
	return n >= 0, nil
}
