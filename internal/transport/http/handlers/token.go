package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/infra/telemetry"
	"github.com/mentora/tutoring-auth/internal/usecase"
)

// TokenHandler serves the OAuth2 token endpoint.
type TokenHandler struct {
	exchange *usecase.TokenExchangeService
	cookies  port.RefreshTokenWriter
	metrics  *telemetry.Metrics
}

// NewTokenHandler constructs a token handler.
func NewTokenHandler(exchange *usecase.TokenExchangeService, cookies port.RefreshTokenWriter) *TokenHandler {
	return &TokenHandler{exchange: exchange, cookies: cookies}
}

// WithMetrics attaches the domain exchange counter.
func (h *TokenHandler) WithMetrics(metrics *telemetry.Metrics) *TokenHandler {
	h.metrics = metrics
	return h
}

// Exchange godoc
// @Summary OAuth2 token endpoint
// @Description Redeems an authorization code or rotates a refresh token.
// @Tags OAuth2
// @Accept x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "authorization_code or refresh_token"
// @Param code formData string false "Authorization code"
// @Param refresh_token formData string false "Refresh token (native clients; browsers use the cookie)"
// @Param client_id formData string false "Client identifier"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} OAuthErrorResponse
// @Router /connect/token [post]
func (h *TokenHandler) Exchange(c *gin.Context) {
	if h.exchange == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "token exchange unavailable"))
		return
	}

	input := usecase.ExchangeInput{
		GrantType:    strings.TrimSpace(c.PostForm("grant_type")),
		Code:         strings.TrimSpace(c.PostForm("code")),
		RefreshToken: strings.TrimSpace(c.PostForm("refresh_token")),
		ClientID:     strings.TrimSpace(c.PostForm("client_id")),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	}

	// Browsers carry the refresh token in the httpOnly cookie; a form
	// value takes precedence so native clients keep working.
	fromCookie := false
	if input.RefreshToken == "" {
		if cookie, err := c.Cookie(RefreshTokenCookieName); err == nil {
			input.RefreshToken = strings.TrimSpace(cookie)
			fromCookie = true
		}
	}

	result, err := h.exchange.Exchange(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnsupportedGrantType):
			h.metrics.ObserveExchange(input.GrantType, "unsupported_grant_type")
			c.JSON(http.StatusBadRequest, OAuthErrorResponse{Error: "unsupported_grant_type"})
		case errors.Is(err, usecase.ErrInvalidGrant):
			h.metrics.ObserveExchange(input.GrantType, "invalid_grant")
			// A failed refresh leaves the browser holding a dead cookie.
			if fromCookie && h.cookies != nil {
				h.cookies.Clear(c.Writer)
			}
			c.JSON(http.StatusBadRequest, OAuthErrorResponse{Error: "invalid_grant"})
		default:
			h.metrics.ObserveExchange(input.GrantType, "error")
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "token exchange failed"))
		}
		return
	}

	h.metrics.ObserveExchange(input.GrantType, "success")

	if h.cookies != nil {
		h.cookies.Set(c.Writer, result.RefreshToken, result.RefreshExpiresAt)
	}

	response := TokenResponse{
		AccessToken:   result.AccessToken,
		IdentityToken: result.IdentityToken,
		TokenType:     "Bearer",
		ExpiresIn:     result.ExpiresIn,
		Scope:         strings.Join(result.Scopes, " "),
	}

	// Native apps granted background refresh get the token in the body;
	// everyone else relies on the cookie alone.
	if domain.HasScope(result.Scopes, domain.ScopeTutoringOffline) {
		response.RefreshToken = result.RefreshToken
	}

	c.JSON(http.StatusOK, response)
}
