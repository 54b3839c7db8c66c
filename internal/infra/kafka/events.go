package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	// Key by user so a subject's revocation and replay events land on one
	// partition and consumers observe them in order.
	if userID != "" {
		message.Key = sarama.StringEncoder(userID)
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSessionRevoked publishes auth.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID  string    `json:"session_id"`
		UserID     string    `json:"user_id"`
		DeviceName *string   `json:"device_name,omitempty"`
		RevokedAt  time.Time `json:"revoked_at"`
		Reason     string    `json:"reason"`
		NotifyUser bool      `json:"notify_user"`
	}{
		SessionID:  event.SessionID,
		UserID:     event.UserID,
		DeviceName: event.DeviceName,
		RevokedAt:  event.RevokedAt.UTC(),
		Reason:     event.Reason,
		NotifyUser: event.NotifyUser,
	}

	return p.publish(ctx, event.EventID, "auth.session.revoked", event.UserID, event.RevokedAt, payload)
}

// PublishReplayDetected publishes auth.token.replay_detected events.
func (p *EventPublisher) PublishReplayDetected(ctx context.Context, event domain.ReplayDetectedEvent) error {
	payload := struct {
		SessionID  string    `json:"session_id"`
		UserID     string    `json:"user_id"`
		TokenID    string    `json:"token_id"`
		DetectedAt time.Time `json:"detected_at"`
		IPAddress  *string   `json:"ip_address,omitempty"`
		UserAgent  *string   `json:"user_agent,omitempty"`
	}{
		SessionID:  event.SessionID,
		UserID:     event.UserID,
		TokenID:    event.TokenID,
		DetectedAt: event.DetectedAt.UTC(),
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
	}

	return p.publish(ctx, event.EventID, "auth.token.replay_detected", event.UserID, event.DetectedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
