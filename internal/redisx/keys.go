package redisx

import (
	"fmt"
	"time"
)

const (
	// Order read cache: order:{order_id} -> order JSON
	KeyOrder = "order:%s"

	// Dedup of consumed events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Sliding-window rate limit: rate_limit:{scope}:{caller}
	KeyRateLimit = "rate_limit:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)

func OrderKey(orderID string) string { return fmt.Sprintf(KeyOrder, orderID) }

func DedupKey(service, id string) string { return fmt.Sprintf(KeyDedup, service, id) }

func RateLimitKey(scope, caller string) string { return fmt.Sprintf(KeyRateLimit, scope, caller) }
