package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

// RedisCartCache keeps each user's open order for a short window. Stale
// reads are tolerated; every cart mutation deletes the key.
type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCartCache(client *redis.Client) *RedisCartCache {
	return &RedisCartCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCartCache) Get(ctx context.Context, userID string) (*order.Order, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, order.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get failed: %w", err)
	}

	var ord order.Order
	if err := json.Unmarshal(data, &ord); err != nil {
		return nil, fmt.Errorf("cache: unmarshal cart failed: %w", err)
	}

	return &ord, nil
}

func (r *RedisCartCache) Set(ctx context.Context, userID string, ord *order.Order) error {
	data, err := json.Marshal(ord)
	if err != nil {
		return fmt.Errorf("cache: marshal cart failed: %w", err)
	}

	// Jitter spreads expirations so carts cached together do not all fall
	// out of the cache at once.
	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	if err := r.client.Set(ctx, cacheKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set failed: %w", err)
	}

	return nil
}

func (r *RedisCartCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache: redis delete failed: %w", err)
	}

	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
