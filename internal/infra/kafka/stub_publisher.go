package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"session_id":  event.SessionID,
		"user_id":     event.UserID,
		"device_name": event.DeviceName,
		"revoked_at":  event.RevokedAt,
		"reason":      event.Reason,
		"notify_user": event.NotifyUser,
	}
	p.logEvent("auth.session.revoked", event.UserID, event.RevokedAt, payload)
	return nil
}

// PublishReplayDetected logs auth.token.replay_detected events.
func (p *StubPublisher) PublishReplayDetected(_ context.Context, event domain.ReplayDetectedEvent) error {
	payload := map[string]any{
		"session_id":  event.SessionID,
		"user_id":     event.UserID,
		"token_id":    event.TokenID,
		"detected_at": event.DetectedAt,
		"ip_address":  event.IPAddress,
		"user_agent":  event.UserAgent,
	}
	p.logEvent("auth.token.replay_detected", event.UserID, event.DetectedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
