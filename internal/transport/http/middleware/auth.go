package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/infra/security"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header, rejects tokens whose
// session has been revoked, and stores the claims in the request context.
// The revocation cache check is best effort: an unreachable cache does
// not lock every caller out.
func RequireAuth(signer *security.TokenSigner, revocations port.SessionRevocationCache, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, err := signer.ParseAccessToken(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			case errors.Is(err, security.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		if revocations != nil && claims.SessionID != "" {
			revoked, _, err := revocations.IsSessionRevoked(c.Request.Context(), claims.SessionID)
			if err != nil {
				logger.Warn("session revocation check failed",
					zap.String("session_id", claims.SessionID),
					zap.Error(err),
				)
			} else if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "session revoked"))
				return
			}
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(SessionIDKey, claims.SessionID)
		c.Set("claims", claims)
		c.Set("roles", claims.Roles)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = claims.Subject
			reqCtx.SessionID = claims.SessionID
		}

		c.Next()
	}
}

// OptionalAuth parses the Authorization header when present and stores the
// claims in the request context, but never rejects the request. Handlers
// that redirect unauthenticated callers to a login page sit behind this
// instead of RequireAuth.
func OptionalAuth(signer *security.TokenSigner, revocations port.SessionRevocationCache, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Next()
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.Next()
			return
		}

		claims, err := signer.ParseAccessToken(token)
		if err != nil {
			c.Next()
			return
		}

		if revocations != nil && claims.SessionID != "" {
			revoked, _, err := revocations.IsSessionRevoked(c.Request.Context(), claims.SessionID)
			if err != nil {
				logger.Warn("session revocation check failed",
					zap.String("session_id", claims.SessionID),
					zap.Error(err),
				)
			} else if revoked {
				c.Next()
				return
			}
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(SessionIDKey, claims.SessionID)
		c.Set("claims", claims)
		c.Set("roles", claims.Roles)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = claims.Subject
			reqCtx.SessionID = claims.SessionID
		}

		c.Next()
	}
}

// GetAuthenticatedUserID retrieves the user ID from context (helper for handlers)
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok {
		return id, true
	}

	return "", false
}

// GetAuthenticatedSessionID retrieves the session ID bound to the access token.
func GetAuthenticatedSessionID(c *gin.Context) string {
	if sessionID, exists := c.Get(SessionIDKey); exists {
		if id, ok := sessionID.(string); ok {
			return id
		}
	}
	return ""
}

// GetAccessTokenClaims retrieves the parsed claims stored by RequireAuth.
func GetAccessTokenClaims(c *gin.Context) *security.AccessTokenClaims {
	if value, exists := c.Get("claims"); exists {
		if claims, ok := value.(*security.AccessTokenClaims); ok {
			return claims
		}
	}
	return nil
}
