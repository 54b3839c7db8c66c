package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/mentora/tutoring-auth/internal/core/port"
)

const defaultSessionRevocationPrefix = "auth:sess:revoked"

// SessionRevocationCache persists session revocation flags in Redis so
// access-token checks can reject revoked sessions without hitting
// PostgreSQL on every request.
type SessionRevocationCache struct {
	client *red.Client
	prefix string
}

// NewSessionRevocationCache constructs a Redis-backed session revocation cache.
func NewSessionRevocationCache(client *red.Client, keyPrefix string) *SessionRevocationCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSessionRevocationPrefix
	}

	return &SessionRevocationCache{client: client, prefix: prefix}
}

// MarkSessionRevoked stores the session identifier with the supplied reason and TTL window.
func (c *SessionRevocationCache) MarkSessionRevoked(ctx context.Context, sessionID, reason string, ttl time.Duration) error {
	key := c.key(sessionID)
	if key == "" {
		return fmt.Errorf("session id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	value := strings.TrimSpace(reason)
	if value == "" {
		value = "session_revoked"
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session revocation: %w", err)
	}

	return nil
}

// IsSessionRevoked reports whether a session has been revoked and returns the stored reason when present.
func (c *SessionRevocationCache) IsSessionRevoked(ctx context.Context, sessionID string) (bool, string, error) {
	key := c.key(sessionID)
	if key == "" {
		return false, "", fmt.Errorf("session id is required")
	}

	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("redis get session revocation: %w", err)
	}

	return true, value, nil
}

func (c *SessionRevocationCache) key(sessionID string) string {
	trimmed := strings.TrimSpace(sessionID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, trimmed)
}

var _ port.SessionRevocationCache = (*SessionRevocationCache)(nil)
