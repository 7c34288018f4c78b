package redisx

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderCache is a read-through cache of rendered orders. Redis failures are
// logged and treated as misses; the database stays the source of truth.
type OrderCache struct {
	RDB *redis.Client
	TTL time.Duration
}

func (c *OrderCache) Get(ctx context.Context, orderID string) ([]byte, bool) {
	b, err := c.RDB.Get(ctx, OrderKey(orderID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("order cache get %s: %v", orderID, err)
		}
		return nil, false
	}
	return b, true
}

func (c *OrderCache) Set(ctx context.Context, orderID string, body []byte) {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = TTLOrderCache
	}
	if err := c.RDB.Set(ctx, OrderKey(orderID), body, ttl).Err(); err != nil {
		log.Printf("order cache set %s: %v", orderID, err)
	}
}

func (c *OrderCache) Invalidate(ctx context.Context, orderID string) {
	if err := c.RDB.Del(ctx, OrderKey(orderID)).Err(); err != nil {
		log.Printf("order cache del %s: %v", orderID, err)
	}
}
