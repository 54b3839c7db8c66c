package handlers

import (
	"net/http"
	"time"

	"github.com/mentora/tutoring-auth/internal/core/port"
)

// RefreshTokenCookieName is the browser cookie carrying the refresh token.
const RefreshTokenCookieName = "refreshToken"

// CookieRefreshTokenWriter is the single component that touches the
// refresh-token cookie. Scoping the path to the token endpoint keeps the
// cookie out of every other request the browser makes.
type CookieRefreshTokenWriter struct {
	path   string
	secure bool
}

// NewCookieRefreshTokenWriter constructs a cookie writer scoped to the
// token endpoint path.
func NewCookieRefreshTokenWriter(path string, secure bool) *CookieRefreshTokenWriter {
	if path == "" {
		path = "/connect/token"
	}
	return &CookieRefreshTokenWriter{path: path, secure: secure}
}

// Set writes the refresh token cookie.
func (w *CookieRefreshTokenWriter) Set(rw http.ResponseWriter, rawToken string, expiresAt time.Time) {
	http.SetCookie(rw, &http.Cookie{
		Name:     RefreshTokenCookieName,
		Value:    rawToken,
		Path:     w.path,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the refresh token cookie.
func (w *CookieRefreshTokenWriter) Clear(rw http.ResponseWriter) {
	http.SetCookie(rw, &http.Cookie{
		Name:     RefreshTokenCookieName,
		Value:    "",
		Path:     w.path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

var _ port.RefreshTokenWriter = (*CookieRefreshTokenWriter)(nil)
