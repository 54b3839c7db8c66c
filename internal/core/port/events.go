package port

import (
	"context"

	"github.com/mentora/tutoring-auth/internal/core/domain"
)

// EventPublisher fans session security events out to the rest of the
// platform. The notification service consumes replay events to warn the
// session owner.
type EventPublisher interface {
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishReplayDetected(ctx context.Context, event domain.ReplayDetectedEvent) error
}
