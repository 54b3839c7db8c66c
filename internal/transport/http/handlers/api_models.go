package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mentora/tutoring-auth/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// OAuthErrorResponse is the RFC 6749 error shape returned by the
// protocol endpoints (token, revocation).
type OAuthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// TokenResponse is the successful token-endpoint payload. The refresh
// token never appears here for browser clients; it travels in the
// refreshToken cookie instead.
type TokenResponse struct {
	AccessToken   string `json:"access_token"`
	IdentityToken string `json:"id_token,omitempty"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	TokenType     string `json:"token_type"`
	ExpiresIn     int    `json:"expires_in"`
	Scope         string `json:"scope,omitempty"`
}

// SessionPayload is the API view of a device session.
type SessionPayload struct {
	ID             string     `json:"id"`
	DeviceID       *string    `json:"device_id,omitempty"`
	DeviceName     *string    `json:"device_name,omitempty"`
	IPAddress      *string    `json:"ip_address,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	IsCurrent      bool       `json:"is_current,omitempty"`
}

func newSessionPayload(session domain.Session) SessionPayload {
	return SessionPayload{
		ID:             session.ID,
		DeviceID:       session.DeviceID,
		DeviceName:     session.DeviceName,
		IPAddress:      session.IPAddress,
		CreatedAt:      session.CreatedAt,
		LastActivityAt: session.LastActivityAt,
		ExpiresAt:      session.RefreshExpiresAt,
		RevokedAt:      session.RevokedAt,
	}
}

// SessionListResponse wraps the session listing payload.
type SessionListResponse struct {
	Sessions []SessionPayload `json:"sessions"`
	Total    int              `json:"total"`
}

// SessionBatchRevokeRequest names the sessions to terminate in one call.
type SessionBatchRevokeRequest struct {
	SessionIDs []string `json:"session_ids" binding:"required"`
	Reason     string   `json:"reason"`
}

// SessionBatchRevokeResponse reports how many sessions changed state.
type SessionBatchRevokeResponse struct {
	RevokedCount int `json:"revoked_count"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
