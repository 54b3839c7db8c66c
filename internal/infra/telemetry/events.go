package telemetry

import (
	"context"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
)

// instrumentedPublisher counts security events on their way to the bus.
type instrumentedPublisher struct {
	next    port.EventPublisher
	metrics *Metrics
}

// InstrumentEvents wraps a publisher so session revocations and replay
// detections feed the domain counters regardless of transport.
func InstrumentEvents(next port.EventPublisher, metrics *Metrics) port.EventPublisher {
	if metrics == nil {
		return next
	}
	return &instrumentedPublisher{next: next, metrics: metrics}
}

func (p *instrumentedPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	p.metrics.SessionsRevoked.WithLabelValues(event.Reason).Inc()
	return p.next.PublishSessionRevoked(ctx, event)
}

func (p *instrumentedPublisher) PublishReplayDetected(ctx context.Context, event domain.ReplayDetectedEvent) error {
	p.metrics.ReplaysDetected.Inc()
	return p.next.PublishReplayDetected(ctx, event)
}

var _ port.EventPublisher = (*instrumentedPublisher)(nil)
