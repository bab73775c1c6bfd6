package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow prunes expired entries and admits the request only while the
// window holds fewer than max entries. Denied requests are not recorded, so
// a client retrying while limited regains capacity as its old entries age out.
// Returns {allowed, count, oldest score in ms}.
var slidingWindow = redis.NewScript(`
redis.call("zremrangebyscore", KEYS[1], "-inf", ARGV[2])
local count = redis.call("zcard", KEYS[1])
local allowed = 0
if count < tonumber(ARGV[4]) then
  redis.call("zadd", KEYS[1], ARGV[1], ARGV[5])
  count = count + 1
  allowed = 1
end
redis.call("pexpire", KEYS[1], ARGV[3])
local oldest = redis.call("zrange", KEYS[1], 0, 0, "withscores")
local first = ARGV[1]
if oldest[2] then
  first = oldest[2]
end
return {allowed, count, first}
`)

// Limiter is a per-key sliding window over a Redis sorted set scored by
// request time in milliseconds.
type Limiter struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

// Allow admits one request for key when fewer than max were admitted during
// the last window. reset is when the oldest admitted request leaves the window.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	now := l.now()
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())

	res, err := slidingWindow.Run(ctx, l.Client, []string{l.Prefix + key},
		strconv.FormatInt(nowMs, 10),
		strconv.FormatInt(nowMs-windowMs, 10),
		strconv.FormatInt(windowMs, 10),
		strconv.Itoa(max),
		member,
	).Slice()
	if err != nil {
		return false, 0, now.Add(window), err
	}
	if len(res) != 3 {
		return false, 0, now.Add(window), fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}

	admitted, _ := res[0].(int64)
	count, _ := res[1].(int64)
	oldestMs := nowMs
	if s, ok := res[2].(string); ok {
		if f, perr := strconv.ParseFloat(s, 64); perr == nil {
			oldestMs = int64(f)
		}
	}

	remaining = max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return admitted == 1, remaining, time.UnixMilli(oldestMs).Add(window), nil
}

func (l Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
