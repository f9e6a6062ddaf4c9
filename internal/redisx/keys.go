package redisx

import "time"

const (
	// Checkout idempotency: idem:checkout:{checkout_id} -> order_id.
	// Set after a successful insert; a retried checkout short-circuits here
	// before the DB unique constraint even gets a say.
	KeyIdemCheckout = "idem:checkout:%s"

	// Swish payment status cache: swish:status:{instruction_id} -> status
	KeySwishStatus = "swish:status:%s"

	// Dedup for the notifier consumer: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLSwishStatus = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
