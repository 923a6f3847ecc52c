package redisx

import "time"

const (
	// Advisory availability cache: avail:{store}:{variant}:{window} -> int
	KeyAvailability = "avail:%s:%s:%s"

	// Order status read cache: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	// Availability reads outside checkout are advisory; keep staleness short.
	TTLAvailability = 5 * time.Second
	TTLStatusCache  = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
