package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingUploadsKey = "pending:complaint_uploads"
	pendingOwnersKey  = "pending:complaint_upload_owners"
)

// PendingUploads remembers uploaded objects that no complaint references yet,
// and who uploaded each one.
type PendingUploads interface {
	Track(ctx context.Context, userID, objectID string, at time.Time) error
	// OwnedBy returns the subset of objectIDs still pending for userID.
	OwnedBy(ctx context.Context, userID string, objectIDs []string) ([]string, error)
	Release(ctx context.Context, objectIDs ...string) error
	Expired(ctx context.Context, cutoff time.Time) ([]string, error)
}

type redisPendingUploads struct {
	client *redis.Client
}

// NewRedisPendingUploads keeps pending uploads in a sorted set scored by
// upload time, with a hash from object id to uploader.
func NewRedisPendingUploads(client *redis.Client) PendingUploads {
	if client == nil {
		return nil
	}
	return &redisPendingUploads{client: client}
}

func (p *redisPendingUploads) Track(ctx context.Context, userID, objectID string, at time.Time) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, pendingUploadsKey, redis.Z{
			Score:  float64(at.Unix()),
			Member: objectID,
		})
		pipe.HSet(ctx, pendingOwnersKey, objectID, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to track pending upload: %w", err)
	}
	return nil
}

func (p *redisPendingUploads) OwnedBy(ctx context.Context, userID string, objectIDs []string) ([]string, error) {
	if len(objectIDs) == 0 {
		return nil, nil
	}
	owners, err := p.client.HMGet(ctx, pendingOwnersKey, objectIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending uploads: %w", err)
	}

	owned := make([]string, 0, len(objectIDs))
	for i, owner := range owners {
		if s, ok := owner.(string); ok && s == userID {
			owned = append(owned, objectIDs[i])
		}
	}
	return owned, nil
}

func (p *redisPendingUploads) Release(ctx context.Context, objectIDs ...string) error {
	if len(objectIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(objectIDs))
	for i, id := range objectIDs {
		members[i] = id
	}
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, pendingUploadsKey, members...)
		pipe.HDel(ctx, pendingOwnersKey, objectIDs...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to release pending uploads: %w", err)
	}
	return nil
}

func (p *redisPendingUploads) Expired(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := p.client.ZRangeByScore(ctx, pendingUploadsKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending uploads: %w", err)
	}
	return ids, nil
}
