package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"anoa.com/campuscomplaint/pkg/apperror"
	"github.com/redis/go-redis/v9"
)

// RateLimitError reports a caller that is still inside its cooldown window.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimited
}

// Cooldown allows one action per user per window. A nil Cooldown allows
// everything.
type Cooldown struct {
	client *redis.Client
	action string
	window time.Duration
}

// NewCooldown returns nil when redis is not configured or the window is not
// positive.
func NewCooldown(client *redis.Client, action string, window time.Duration) *Cooldown {
	if client == nil || window <= 0 {
		return nil
	}
	return &Cooldown{client: client, action: action, window: window}
}

func (c *Cooldown) key(userID string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID, c.action)
}

// Acquire takes the user's slot or returns a *RateLimitError carrying the
// remaining wait.
func (c *Cooldown) Acquire(ctx context.Context, userID string) error {
	if c == nil {
		return nil
	}

	wasSet, err := c.client.SetNX(ctx, c.key(userID), "locked", c.window).Result()
	if err != nil {
		return fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	if wasSet {
		return nil
	}

	ttl, err := c.client.TTL(ctx, c.key(userID)).Result()
	if err != nil || ttl < 0 {
		ttl = c.window
	}
	return &RateLimitError{
		Message:    fmt.Sprintf("you are doing that too fast. Please wait %.0f seconds", ttl.Seconds()),
		RetryAfter: ttl,
	}
}

// Release gives the slot back, used when the guarded action failed.
func (c *Cooldown) Release(ctx context.Context, userID string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(userID)).Err()
}
