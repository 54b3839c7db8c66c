package port

import (
	"context"
	"time"

	"github.com/mentora/tutoring-auth/internal/core/domain"
)

// SessionRepository deals with session storage. Sessions are never
// deleted; revocation is a logical transition retained for audit.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	SetRefreshToken(ctx context.Context, sessionID, tokenID string, expiresAt time.Time) error
	Revoke(ctx context.Context, sessionID, reason string, notify bool, at time.Time) (bool, error)
}
