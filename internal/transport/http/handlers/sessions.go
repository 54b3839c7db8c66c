package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mentora/tutoring-auth/internal/transport/http/middleware"
	"github.com/mentora/tutoring-auth/internal/usecase"
)

// SessionHandler exposes session management endpoints for the session owner.
type SessionHandler struct {
	sessions *usecase.SessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions *usecase.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes binds REST session management routes to the provided router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("", h.ListSessions)
	r.DELETE("/:session_id", h.RevokeSession)
	r.POST("/batch", h.RevokeBatch)
}

// ListSessions godoc
// @Summary List active sessions
// @Description Returns the authenticated user's active device sessions.
// @Tags Sessions
// @Security Bearer
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} SessionListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "session service unavailable"))
		return
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessions, err := h.sessions.ListSessions(c.Request.Context(), userID)
	if err != nil {
		respondSessionError(c, err, "failed to list sessions")
		return
	}

	currentSessionID := middleware.GetAuthenticatedSessionID(c)

	response := make([]SessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payload := newSessionPayload(session)
		if currentSessionID != "" && session.ID == currentSessionID {
			payload.IsCurrent = true
		}
		response = append(response, payload)
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: response, Total: len(response)})
}

// RevokeSession godoc
// @Summary Revoke a specific session
// @Description Revokes an active session owned by the authenticated user.
// @Tags Sessions
// @Security Bearer
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param session_id path string true "Session identifier"
// @Param reason query string false "Optional revocation reason"
// @Success 204 "Session revoked"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/sessions/{session_id} [delete]
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "session service unavailable"))
		return
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session_id is required"))
		return
	}

	reason := strings.TrimSpace(c.Query("reason"))
	if err := h.sessions.RevokeOwned(c.Request.Context(), userID, sessionID, reason); err != nil {
		respondSessionError(c, err, "failed to revoke session")
		return
	}

	c.Status(http.StatusNoContent)
}

// RevokeBatch godoc
// @Summary Revoke several sessions
// @Description Revokes the named sessions owned by the authenticated user. Unknown, foreign, and already-revoked sessions are skipped.
// @Tags Sessions
// @Security Bearer
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body SessionBatchRevokeRequest true "Sessions to revoke"
// @Success 200 {object} SessionBatchRevokeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/sessions/batch [post]
func (h *SessionHandler) RevokeBatch(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "session service unavailable"))
		return
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req SessionBatchRevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.SessionIDs) == 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session_ids is required"))
		return
	}

	revoked, err := h.sessions.RevokeBatch(c.Request.Context(), userID, req.SessionIDs, strings.TrimSpace(req.Reason))
	if err != nil && !errors.Is(err, usecase.ErrSessionAlreadyRevoked) {
		respondSessionError(c, err, "failed to revoke sessions")
		return
	}

	c.JSON(http.StatusOK, SessionBatchRevokeResponse{RevokedCount: revoked})
}
