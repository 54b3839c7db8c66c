package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/mentora/tutoring-auth/internal/core/port"
)

const defaultRateLimitPrefix = "auth:rate-limit"

// RateLimitStore counts requests per key inside a fixed window using
// INCR plus a TTL set on the first hit.
type RateLimitStore struct {
	client *red.Client
	prefix string
}

// NewRateLimitStore constructs a Redis-backed rate-limit counter.
func NewRateLimitStore(client *red.Client, keyPrefix string) *RateLimitStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}

	return &RateLimitStore{client: client, prefix: prefix}
}

// Increment bumps the counter for the key and returns the new count. The
// window TTL is only applied when the key is created.
func (s *RateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return 0, fmt.Errorf("rate limit key is required")
	}
	if window <= 0 {
		return 0, fmt.Errorf("window must be positive")
	}

	fullKey := fmt.Sprintf("%s:%s", s.prefix, trimmed)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis rate limit incr: %w", err)
	}

	return incr.Val(), nil
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
