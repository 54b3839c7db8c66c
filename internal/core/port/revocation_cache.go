package port

import (
	"context"
	"time"
)

// SessionRevocationCache keeps recently revoked session ids in a fast
// store so access-token checks reject them without a database round trip.
type SessionRevocationCache interface {
	MarkSessionRevoked(ctx context.Context, sessionID, reason string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, string, error)
}

// RateLimitStore counts requests per key inside a window.
type RateLimitStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}
