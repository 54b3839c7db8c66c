package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/repository"
)

const revocationEndpointReason = "token_revoked_via_revocation_endpoint"

// RevocationService handles the public token revocation endpoint. Per
// RFC 7009 semantics the call is idempotent: revoking an unknown or
// already-revoked token succeeds silently.
type RevocationService struct {
	tokens   port.TokenRepository
	sessions *SessionService
	logger   *zap.Logger
}

// NewRevocationService constructs a RevocationService.
func NewRevocationService(tokens port.TokenRepository, sessions *SessionService, logger *zap.Logger) *RevocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationService{
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}
}

// RevokeToken revokes the refresh token named by its public reference and
// tears down the owning session. The reference is the token id half of
// the wire format, so callers never need to present the secret.
func (s *RevocationService) RevokeToken(ctx context.Context, tokenReference string) error {
	tokenReference = strings.TrimSpace(tokenReference)
	if tokenReference == "" {
		return nil
	}

	// Clients may send the full "<id>.<secret>" value instead of the
	// bare reference; accept both.
	if idx := strings.IndexByte(tokenReference, '.'); idx > 0 {
		tokenReference = tokenReference[:idx]
	}

	token, err := s.tokens.GetByID(ctx, tokenReference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get refresh token: %w", err)
	}

	if token.IsRevoked() {
		return nil
	}

	// The token is the primary target; kill it before anything else so
	// its death never depends on session teardown succeeding.
	if _, err := s.tokens.Revoke(ctx, token.ID, s.sessions.now()); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	// Session teardown cascades to sibling tokens and propagates cache
	// and event updates. It is best effort here: the credential is
	// already dead, so failures are logged and swallowed.
	if _, err := s.sessions.Revoke(ctx, token.SessionID, revocationEndpointReason, false); err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			s.logger.Warn("failed to revoke session for revoked token",
				zap.String("session_id", token.SessionID),
				zap.String("token_id", token.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}
