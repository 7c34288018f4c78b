package redisx

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Dedup remembers which event ids a consumer has already handled.
type Dedup struct {
	RDB     *redis.Client
	Service string
}

// FirstSeen marks id as handled and reports whether this call was the first.
func (d *Dedup) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, DedupKey(d.Service, id), "1", TTLDedup).Result()
}

// Forget clears id after a failed handling so the redelivered message is not
// taken for a duplicate.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, DedupKey(d.Service, id)).Err()
}
