package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes a stored notification to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, userID string, payload []byte) error
}

// Channel is the pub/sub channel the websocket relay listens on for a user.
func Channel(userID string) string {
	return fmt.Sprintf("user_notifications:%s", userID)
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher returns nil when redis is not configured; the service
// then skips live delivery.
func NewRedisPublisher(client *redis.Client) Publisher {
	if client == nil {
		return nil
	}
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, userID string, payload []byte) error {
	return p.client.Publish(ctx, Channel(userID), payload).Err()
}
