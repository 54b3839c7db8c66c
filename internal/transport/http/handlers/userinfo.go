package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mentora/tutoring-auth/internal/usecase"
)

// UserInfoHandler serves the OpenID Connect userinfo endpoint.
type UserInfoHandler struct {
	userinfo *usecase.UserInfoService
}

// NewUserInfoHandler constructs a userinfo handler.
func NewUserInfoHandler(userinfo *usecase.UserInfoService) *UserInfoHandler {
	return &UserInfoHandler{userinfo: userinfo}
}

// UserInfo godoc
// @Summary OpenID Connect userinfo endpoint
// @Description Returns the subject's claims gated by the access token's scopes.
// @Tags OAuth2
// @Security Bearer
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} map[string]any
// @Failure 401 {object} ErrorResponse
// @Router /connect/userinfo [get]
func (h *UserInfoHandler) UserInfo(c *gin.Context) {
	if h.userinfo == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "userinfo unavailable"))
		return
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "bearer token required"))
		return
	}

	claims, err := h.userinfo.Claims(c.Request.Context(), strings.TrimSpace(parts[1]))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrExpiredAccessToken), errors.Is(err, usecase.ErrInvalidAccessToken):
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid access token"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "userinfo failed"))
		}
		return
	}

	c.JSON(http.StatusOK, claims)
}
