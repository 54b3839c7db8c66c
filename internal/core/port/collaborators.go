package port

import (
	"context"
	"net/http"
	"time"

	"github.com/mentora/tutoring-auth/internal/core/domain"
)

// UserDirectory is the user-lookup collaborator. The authorization server
// only ever asks "who is this subject and may they still sign in";
// identity storage and password verification live elsewhere.
type UserDirectory interface {
	GetSubject(ctx context.Context, subjectID string) (*domain.Subject, error)
}

// ClientInfoResolver resolves a stable device identifier and a friendly
// device name for the calling browser or app.
type ClientInfoResolver interface {
	Resolve(ctx context.Context, ipAddress, userAgent string) (domain.ClientInfo, error)
}

// RefreshTokenWriter is the cookie collaborator. It is the only component
// allowed to touch the refreshToken browser cookie; the exchange engine
// receives the cookie value as grant input and never writes it itself.
type RefreshTokenWriter interface {
	Set(w http.ResponseWriter, rawToken string, expiresAt time.Time)
	Clear(w http.ResponseWriter)
}
