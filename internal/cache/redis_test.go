package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/gamestore-backend/internal/cache"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

func setupCache(t *testing.T) (*cache.RedisCartCache, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewRedisCartCache(client), srv
}

func sampleCart() *order.Order {
	return &order.Order{
		ID:     uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000")),
		UserID: uuid.Must(uuid.FromString("123e4567-e89b-12d3-a456-426614174000")),
		Status: order.StatusOpen,
		Lines: []order.OrderLine{
			{
				ProductID: uuid.Must(uuid.FromString("9f8b1b2c-3d4e-4f50-a1b2-c3d4e5f60718")),
				UnitPrice: decimal.RequireFromString("59.99"),
				Quantity:  2,
			},
		},
	}
}

func TestRedisCartCache_SetAndGet(t *testing.T) {
	c, _ := setupCache(t)
	cart := sampleCart()
	userID := cart.UserID.String()

	require.NoError(t, c.Set(context.Background(), userID, cart))

	got, err := c.Get(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, cart.ID, got.ID)
	assert.Equal(t, cart.Status, got.Status)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].UnitPrice.Equal(cart.Lines[0].UnitPrice))
}

func TestRedisCartCache_MissOnUnknownUser(t *testing.T) {
	c, _ := setupCache(t)

	_, err := c.Get(context.Background(), "123e4567-e89b-12d3-a456-426614174000")
	assert.ErrorIs(t, err, order.ErrCacheMiss)
}

func TestRedisCartCache_DeleteInvalidates(t *testing.T) {
	c, _ := setupCache(t)
	cart := sampleCart()
	userID := cart.UserID.String()

	require.NoError(t, c.Set(context.Background(), userID, cart))
	require.NoError(t, c.Delete(context.Background(), userID))

	_, err := c.Get(context.Background(), userID)
	assert.ErrorIs(t, err, order.ErrCacheMiss)
}

func TestRedisCartCache_DeleteMissingKeyIsNoop(t *testing.T) {
	c, _ := setupCache(t)

	assert.NoError(t, c.Delete(context.Background(), "123e4567-e89b-12d3-a456-426614174000"))
}

func TestRedisCartCache_EntryExpires(t *testing.T) {
	c, srv := setupCache(t)
	cart := sampleCart()
	userID := cart.UserID.String()

	require.NoError(t, c.Set(context.Background(), userID, cart))

	// Base TTL is 15 minutes plus up to 5 minutes of jitter.
	srv.FastForward(21 * time.Minute)

	_, err := c.Get(context.Background(), userID)
	assert.ErrorIs(t, err, order.ErrCacheMiss)
}
