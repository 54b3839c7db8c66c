package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mentora/tutoring-auth/internal/core/domain"
)

var (
	// ErrInvalidToken indicates the token is malformed or failed signature validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates the token has elapsed its validity window.
	ErrExpiredToken = errors.New("token expired")
)

// AccessTokenClaims carries the claims parsed back out of an access token.
type AccessTokenClaims struct {
	SessionID     string   `json:"sid,omitempty"`
	Scopes        []string `json:"scope,omitempty"`
	Roles         []string `json:"role,omitempty"`
	Name          string   `json:"name,omitempty"`
	GivenName     string   `json:"given_name,omitempty"`
	FamilyName    string   `json:"family_name,omitempty"`
	Email         string   `json:"email,omitempty"`
	EmailVerified bool     `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// TokenSigner issues and parses the JWT halves of the token pair. Claim
// placement is driven entirely by the domain claim-destination table so
// the mapping cannot drift between token kinds.
type TokenSigner struct {
	keys        KeyProvider
	kid         string
	issuer      string
	audience    string
	accessTTL   time.Duration
	identityTTL time.Duration
	now         func() time.Time
}

// NewTokenSigner constructs a TokenSigner.
func NewTokenSigner(keys KeyProvider, kid, issuer, audience string, accessTTL, identityTTL time.Duration) *TokenSigner {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if identityTTL <= 0 {
		identityTTL = accessTTL
	}
	return &TokenSigner{
		keys:        keys,
		kid:         kid,
		issuer:      issuer,
		audience:    audience,
		accessTTL:   accessTTL,
		identityTTL: identityTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the signer clock for deterministic tests.
func (s *TokenSigner) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// IssueAccessToken signs an access token carrying every claim whose
// destination table entry includes the access token.
func (s *TokenSigner) IssueAccessToken(subject domain.Subject, sessionID string, scopes []string) (string, error) {
	return s.issue(subject, sessionID, scopes, s.accessTTL, func(claimType string) bool {
		access, _ := domain.DestinationsFor(claimType, scopes)
		return access
	})
}

// IssueIdentityToken signs an identity token carrying the claims the
// granted scopes unlock.
func (s *TokenSigner) IssueIdentityToken(subject domain.Subject, sessionID string, scopes []string) (string, error) {
	return s.issue(subject, sessionID, scopes, s.identityTTL, func(claimType string) bool {
		_, identity := domain.DestinationsFor(claimType, scopes)
		return identity
	})
}

func (s *TokenSigner) issue(subject domain.Subject, sessionID string, scopes []string, ttl time.Duration, include func(string) bool) (string, error) {
	if subject.ID == "" {
		return "", fmt.Errorf("subject id is required")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": subject.ID,
		"iat": jwt.NewNumericDate(now),
		"nbf": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(ttl)),
		"jti": uuid.NewString(),
	}
	if s.audience != "" {
		claims["aud"] = s.audience
	}
	if len(scopes) > 0 {
		claims["scope"] = scopes
	}

	candidates := map[string]any{
		domain.ClaimName:          subject.DisplayName,
		domain.ClaimGivenName:     subject.GivenName,
		domain.ClaimFamilyName:    subject.FamilyName,
		domain.ClaimEmail:         subject.Email,
		domain.ClaimEmailVerified: subject.EmailVerified,
	}
	if len(subject.Roles) > 0 {
		candidates[domain.ClaimRole] = subject.Roles
	}
	if sessionID != "" {
		candidates[domain.ClaimSessionID] = sessionID
	}

	for claimType, value := range candidates {
		if str, ok := value.(string); ok && str == "" {
			continue
		}
		if include(claimType) {
			claims[claimType] = value
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid

	signingKey, err := s.keys.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("get signing key: %w", err)
	}

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseAccessToken validates the JWT access token and returns its claims.
func (s *TokenSigner) ParseAccessToken(token string) (*AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &AccessTokenClaims{}
	options := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		options = append(options, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		options = append(options, jwt.WithAudience(s.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("kid header not found")
		}

		return s.keys.GetVerificationKey(kid)
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
