package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the sorted set to the window, then adds the member only
// when the remaining count is under the limit. Running as one script makes
// check-and-add atomic across every API replica.
//
// KEYS[1] window key; ARGV: now_ms, window_ms, limit, member.
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// WindowCounter is a Redis-backed sliding-window counter.
// Key format: ratelimit:<client>:<role_class>
type WindowCounter struct {
	client *redis.Client
	now    func() time.Time
}

// NewWindowCounter creates a WindowCounter wrapping the given Redis client.
func NewWindowCounter(client *redis.Client) *WindowCounter {
	return &WindowCounter{client: client, now: time.Now}
}

// Allow implements ports.WindowCounter.
func (w *WindowCounter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	res, err := slidingWindow.Run(ctx, w.client,
		[]string{w.key(key)},
		w.now().UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("sliding window: %w", err)
	}
	return res == 1, nil
}

func (w *WindowCounter) key(k string) string {
	return "ratelimit:" + k
}
