package port

import (
	"context"
	"time"

	"github.com/mentora/tutoring-auth/internal/core/domain"
)

// TokenRepository manages refresh-token records and their rotation chain.
//
// Rotate must be atomic: it marks the presented token revoked and inserts
// its successor with RotatedFromID pointing back at it, inside one
// transaction. The unique constraint on rotated_from arbitrates
// concurrent rotations of the same token; the losing transaction
// surfaces repository.ErrConflict, which callers treat as a replay.
type TokenRepository interface {
	Create(ctx context.Context, token domain.RefreshToken) error
	GetByID(ctx context.Context, tokenID string) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, oldTokenID string, next domain.RefreshToken, at time.Time) error
	Revoke(ctx context.Context, tokenID string, at time.Time) (bool, error)
	RevokeBySession(ctx context.Context, sessionID string, at time.Time) (int, error)
	CountActiveBySession(ctx context.Context, sessionID string) (int, error)
}

// GrantRepository stores authorization-code grants. Codes are persisted
// as hashes and are single use.
type GrantRepository interface {
	Create(ctx context.Context, grant domain.AuthorizationGrant, codeHash string) error
	GetByID(ctx context.Context, grantID string) (*domain.AuthorizationGrant, error)
	RedeemByCodeHash(ctx context.Context, codeHash string, at time.Time) (*domain.AuthorizationGrant, error)
	AttachSession(ctx context.Context, grantID, sessionID string) error
}
