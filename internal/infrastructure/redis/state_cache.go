package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisStateCache keeps an advisory closed flag per listing. The websocket
// layer reads it to turn away joins for settled listings without a store
// round-trip; it is never consulted on a mutating path.
type RedisStateCache struct {
	client *redis.Client
}

func NewStateCache(client *redis.Client) *RedisStateCache {
	return &RedisStateCache{client: client}
}

func (r *RedisStateCache) SetClosed(ctx context.Context, listingID string) error {
	key := fmt.Sprintf("listing:%s:closed", listingID)
	return r.client.Set(ctx, key, 1, 0).Err()
}

func (r *RedisStateCache) IsClosed(ctx context.Context, listingID string) (bool, error) {
	key := fmt.Sprintf("listing:%s:closed", listingID)

	_, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
