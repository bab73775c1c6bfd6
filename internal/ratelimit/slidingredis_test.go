package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newSlidingLimiter(t *testing.T) (Limiter, *fakeClock, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return Limiter{Client: client, Prefix: "test:", Now: clock.Now}, clock, mr, client
}

func TestLimiterAllowSlidingWindow(t *testing.T) {
	limiter, clock, _, _ := newSlidingLimiter(t)
	ctx := context.Background()
	window := 2 * time.Second
	max := 2
	start := clock.Now()

	for i := 0; i < max; i++ {
		allowed, remaining, reset, err := limiter.Allow(ctx, "key", window, max)
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
		require.Equal(t, max-(i+1), remaining)
		require.Equal(t, start.Add(window).UnixMilli(), reset.UnixMilli())
		clock.Advance(500 * time.Millisecond)
	}

	allowed, remaining, reset, err := limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
	require.Equal(t, start.Add(window).UnixMilli(), reset.UnixMilli(), "reset follows the oldest admitted request")

	clock.Advance(window)
	allowed, _, _, err = limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestLimiterDoesNotRecordDeniedRequests(t *testing.T) {
	limiter, clock, _, client := newSlidingLimiter(t)
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 2; i++ {
		allowed, _, _, err := limiter.Allow(ctx, "ip", window, 2)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	// hammering while limited must not push the window forward
	for i := 0; i < 10; i++ {
		clock.Advance(150 * time.Millisecond)
		allowed, _, _, err := limiter.Allow(ctx, "ip", window, 2)
		require.NoError(t, err)
		require.False(t, allowed)
	}
	card, err := client.ZCard(ctx, "test:ip").Result()
	require.NoError(t, err)
	require.EqualValues(t, 2, card)

	clock.Advance(window - 1500*time.Millisecond + time.Millisecond)
	allowed, remaining, _, err := limiter.Allow(ctx, "ip", window, 2)
	require.NoError(t, err)
	require.True(t, allowed, "capacity returns once admitted entries age out")
	require.Equal(t, 1, remaining)
}

func TestLimiterKeysAreIndependentAndExpire(t *testing.T) {
	limiter, _, mr, _ := newSlidingLimiter(t)
	ctx := context.Background()

	allowed, _, _, err := limiter.Allow(ctx, "a", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, _, _, err = limiter.Allow(ctx, "b", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	require.True(t, mr.Exists("test:a"))
	ttl := mr.TTL("test:a")
	require.True(t, ttl > 0 && ttl <= time.Minute, "ttl %s", ttl)
}

func TestLimiterWithoutRedisAllows(t *testing.T) {
	allowed, remaining, _, err := Limiter{}.Allow(context.Background(), "k", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 3, remaining)
}
