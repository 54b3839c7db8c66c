package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the domain counters exposed alongside the HTTP metrics.
type Metrics struct {
	TokenExchanges  *prometheus.CounterVec
	ReplaysDetected prometheus.Counter
	SessionsRevoked *prometheus.CounterVec
}

// NewMetrics registers the domain counters with the default registerer.
func NewMetrics() *Metrics {
	return &Metrics{
		TokenExchanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "token_exchanges_total",
			Help:      "Token exchanges partitioned by grant type and result.",
		}, []string{"grant_type", "result"}),
		ReplaysDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "refresh_token_replays_total",
			Help:      "Refresh token replays detected.",
		}),
		SessionsRevoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "sessions_revoked_total",
			Help:      "Sessions revoked partitioned by reason.",
		}, []string{"reason"}),
	}
}

// ObserveExchange records one token exchange outcome.
func (m *Metrics) ObserveExchange(grantType, result string) {
	if m == nil {
		return
	}
	if grantType == "" {
		grantType = "unknown"
	}
	m.TokenExchanges.WithLabelValues(grantType, result).Inc()
}
