package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mentora/tutoring-auth/internal/transport/http/middleware"
	"github.com/mentora/tutoring-auth/internal/usecase"
)

// AuthorizeHandler serves the OAuth2 authorization endpoint for
// already-authenticated subjects. Anyone without a valid access token is
// redirected to the platform login page with a return target.
type AuthorizeHandler struct {
	authorize *usecase.AuthorizeService
	loginURL  string
}

// NewAuthorizeHandler constructs an authorize handler.
func NewAuthorizeHandler(authorize *usecase.AuthorizeService, loginURL string) *AuthorizeHandler {
	return &AuthorizeHandler{authorize: authorize, loginURL: loginURL}
}

// Authorize godoc
// @Summary OAuth2 authorization endpoint
// @Description Issues a single-use authorization code bound to the authenticated subject.
// @Tags OAuth2
// @Produce json
// @Param client_id query string true "Client identifier"
// @Param redirect_uri query string true "Redirect target"
// @Param scope query string false "Space-separated requested scopes"
// @Param state query string false "Opaque client state"
// @Success 302 "Redirect carrying code and state"
// @Failure 400 {object} ErrorResponse
// @Router /connect/authorize [get]
func (h *AuthorizeHandler) Authorize(c *gin.Context) {
	if h.authorize == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "authorization unavailable"))
		return
	}

	subjectID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || subjectID == "" {
		h.redirectToLogin(c)
		return
	}

	// FormValue covers both the GET query string and the POST form body.
	clientID := strings.TrimSpace(c.Request.FormValue("client_id"))
	redirectURI := strings.TrimSpace(c.Request.FormValue("redirect_uri"))
	if clientID == "" || redirectURI == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "client_id and redirect_uri are required"))
		return
	}

	target, err := url.Parse(redirectURI)
	if err != nil || !target.IsAbs() {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "redirect_uri must be an absolute URL"))
		return
	}

	result, err := h.authorize.Authorize(c.Request.Context(), usecase.AuthorizeInput{
		SubjectID:       subjectID,
		ClientID:        clientID,
		RequestedScopes: strings.Fields(c.Request.FormValue("scope")),
		IPAddress:       c.ClientIP(),
		UserAgent:       c.Request.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrSubjectNotFound), errors.Is(err, usecase.ErrSubjectDisabled):
			// The caller authenticated but may no longer sign in;
			// another login round cannot fix that, so reject instead
			// of redirecting.
			c.JSON(http.StatusBadRequest, OAuthErrorResponse{Error: "invalid_grant"})
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authorization failed"))
		}
		return
	}

	query := target.Query()
	query.Set("code", result.Code)
	if state := c.Request.FormValue("state"); state != "" {
		query.Set("state", state)
	}
	target.RawQuery = query.Encode()

	c.Redirect(http.StatusFound, target.String())
}

func (h *AuthorizeHandler) redirectToLogin(c *gin.Context) {
	if h.loginURL == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	login, err := url.Parse(h.loginURL)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	query := login.Query()
	query.Set("return_url", c.Request.URL.RequestURI())
	login.RawQuery = query.Encode()

	c.Redirect(http.StatusFound, login.String())
}
