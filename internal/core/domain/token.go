package domain

import "time"

// RefreshToken is the stored half of an opaque refresh credential. Only a
// salted hash of the secret is persisted; the raw value lives in the
// client's httpOnly cookie. Tokens form a rotation chain through
// RotatedFromID, which is unique per origin token: exactly one successor
// may ever record itself as rotated from a given token.
type RefreshToken struct {
	ID            string
	SessionID     string
	TokenHash     string
	Salt          string
	RotatedFromID *string
	CreatedAt     time.Time
	RevokedAt     *time.Time
}

// IsRevoked reports whether the token has been rotated away or explicitly revoked.
func (t RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// Revoke marks the token revoked. Returns true when the state changed.
func (t *RefreshToken) Revoke(at time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	revokedAt := at
	t.RevokedAt = &revokedAt
	return true
}

// AuthorizationGrant is the protocol state bound to an authorization code.
// The code itself is stored as a hash; redemption is single use. A session
// is attached on the first successful code exchange and reused afterwards.
type AuthorizationGrant struct {
	ID         string
	UserID     string
	ClientID   string
	DeviceID   *string
	Scopes     []string
	SessionID  *string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RedeemedAt *time.Time
}

// IsExpired reports whether the code window has elapsed.
func (g AuthorizationGrant) IsExpired(at time.Time) bool {
	return !g.ExpiresAt.After(at)
}
