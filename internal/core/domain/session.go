package domain

import "time"

// SessionStatus enumerates the lifecycle states of a device session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusRevoked SessionStatus = "revoked"
	SessionStatusExpired SessionStatus = "expired"
)

// Session represents a persisted device-scoped authentication context.
// It is created on the first successful authorization-code exchange and
// spans every refresh-token rotation performed from the same device.
type Session struct {
	ID               string
	UserID           string
	AuthorizationID  string
	DeviceID         *string
	DeviceName       *string
	UserAgent        *string
	IPAddress        *string
	Status           SessionStatus
	RefreshTokenID   *string
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	LastActivityAt   time.Time
	RevokedAt        *time.Time
	RevokeReason     *string
	NotifyUser       bool
}

// IsActive reports whether the session can still redeem refresh tokens at the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	if s.Status != SessionStatusActive {
		return false
	}
	if s.RevokedAt != nil {
		return false
	}
	return s.RefreshExpiresAt.After(at)
}

// Touch records refresh activity on the session.
func (s *Session) Touch(at time.Time) {
	s.LastActivityAt = at
}

// Revoke marks the session revoked. When notify is true the revocation was
// security triggered (e.g. refresh-token replay) and the owner must be told.
// Returns true when the session changed state.
func (s *Session) Revoke(at time.Time, reason string, notify bool) bool {
	if s.RevokedAt != nil {
		return false
	}
	s.Status = SessionStatusRevoked
	s.RevokedAt = &at
	s.RevokeReason = &reason
	if notify {
		s.NotifyUser = true
	}
	return true
}

// SessionRevokedEvent is published whenever a session transitions to revoked.
type SessionRevokedEvent struct {
	EventID    string
	SessionID  string
	UserID     string
	DeviceName *string
	RevokedAt  time.Time
	Reason     string
	NotifyUser bool
}

// ReplayDetectedEvent is published when an already-revoked refresh token is
// presented for redemption. Consumers alert the session owner.
type ReplayDetectedEvent struct {
	EventID    string
	SessionID  string
	UserID     string
	TokenID    string
	DetectedAt time.Time
	IPAddress  *string
	UserAgent  *string
}
