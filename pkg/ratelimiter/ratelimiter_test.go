package ratelimiter

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"anoa.com/campuscomplaint/pkg/apperror"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCooldown(t *testing.T, window time.Duration) (*Cooldown, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCooldown(client, "submit", window), mr
}

func TestNilCooldownAllowsEverything(t *testing.T) {
	assert.Nil(t, NewCooldown(nil, "submit", time.Minute))
	assert.Nil(t, NewCooldown(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "submit", 0))

	var c *Cooldown
	assert.NoError(t, c.Acquire(context.Background(), "student-1"))
	assert.NoError(t, c.Release(context.Background(), "student-1"))
}

func TestRateLimitErrorMapsTo429(t *testing.T) {
	err := &RateLimitError{Message: "slow down", RetryAfter: 12 * time.Second}

	assert.ErrorIs(t, err, apperror.ErrRateLimited)
	assert.Equal(t, "rate_limited", apperror.KindOf(err))
	assert.Equal(t, http.StatusTooManyRequests, apperror.MapErrorToStatus(err))
	assert.Equal(t, "slow down", apperror.Message(err))
}

func TestCooldownBlocksSecondAcquire(t *testing.T) {
	ctx := context.Background()
	c, mr := newCooldown(t, time.Minute)

	require.NoError(t, c.Acquire(ctx, "student-1"))
	assert.True(t, mr.Exists("rate_limit:user:student-1:submit"))

	err := c.Acquire(ctx, "student-1")
	var limited *RateLimitError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, time.Minute, limited.RetryAfter)
	assert.Equal(t, "you are doing that too fast. Please wait 60 seconds", limited.Message)

	// other users are unaffected
	assert.NoError(t, c.Acquire(ctx, "student-2"))

	mr.FastForward(20 * time.Second)
	err = c.Acquire(ctx, "student-1")
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 40*time.Second, limited.RetryAfter)

	mr.FastForward(40 * time.Second)
	assert.NoError(t, c.Acquire(ctx, "student-1"))
}

func TestCooldownRelease(t *testing.T) {
	ctx := context.Background()
	c, mr := newCooldown(t, time.Minute)

	require.NoError(t, c.Acquire(ctx, "student-1"))
	require.NoError(t, c.Release(ctx, "student-1"))
	assert.False(t, mr.Exists("rate_limit:user:student-1:submit"))

	assert.NoError(t, c.Acquire(ctx, "student-1"))
}

func TestCooldownRedisFailureIsNotARateLimit(t *testing.T) {
	c, mr := newCooldown(t, time.Minute)
	mr.SetError("server unavailable")

	err := c.Acquire(context.Background(), "student-1")
	require.Error(t, err)
	var limited *RateLimitError
	assert.False(t, errors.As(err, &limited))
}
