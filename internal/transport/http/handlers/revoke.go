package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mentora/tutoring-auth/internal/usecase"
)

// RevokeHandler serves the OAuth2 token revocation endpoint.
type RevokeHandler struct {
	revocation *usecase.RevocationService
}

// NewRevokeHandler constructs a revocation handler.
func NewRevokeHandler(revocation *usecase.RevocationService) *RevokeHandler {
	return &RevokeHandler{revocation: revocation}
}

// Revoke godoc
// @Summary OAuth2 token revocation endpoint
// @Description Revokes the named refresh token and its session. Always
// succeeds for well-formed requests, per RFC 7009.
// @Tags OAuth2
// @Accept x-www-form-urlencoded
// @Produce json
// @Param token formData string true "Refresh token reference"
// @Success 200 "Token revoked or already gone"
// @Failure 400 {object} OAuthErrorResponse
// @Router /connect/revoke [post]
func (h *RevokeHandler) Revoke(c *gin.Context) {
	if h.revocation == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "revocation unavailable"))
		return
	}

	token := strings.TrimSpace(c.PostForm("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, OAuthErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "token is required",
		})
		return
	}

	if err := h.revocation.RevokeToken(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "revocation failed"))
		return
	}

	c.Status(http.StatusOK)
}
