package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAdmitsUpToLimit(t *testing.T) {
	c, mr := newTestClient(t)
	rl := NewRateLimiter(c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	ok, err := rl.Allow(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = rl.Allow(ctx, "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	key := c.Key("ratelimit", "10.0.0.1")
	members, err := mr.ZMembers(key)
	require.NoError(t, err)
	assert.Len(t, members, 3, "rejected requests are not counted")
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c)
	ctx := context.Background()

	ok, err := rl.Allow(ctx, "k", 1, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = rl.Allow(ctx, "k", 1, 50*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)

	time.Sleep(80 * time.Millisecond)

	ok, err = rl.Allow(ctx, "k", 1, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterEdgeCases(t *testing.T) {
	c, mr := newTestClient(t)
	rl := NewRateLimiter(c)
	ctx := context.Background()

	ok, err := rl.Allow(ctx, "k", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "zero limit disables limiting")

	_, err = rl.Allow(ctx, "k", 1, 0)
	assert.Error(t, err)

	mr.Close()
	_, err = rl.Allow(ctx, "k", 1, time.Minute)
	assert.Error(t, err)
}
