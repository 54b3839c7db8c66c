package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/infra/security"
	"github.com/mentora/tutoring-auth/internal/repository"
)

var (
	// ErrInvalidAccessToken indicates the access token failed validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// UserInfoService serves OpenID Connect userinfo responses. The claims
// returned are gated by the scopes carried in the presented access token.
type UserInfoService struct {
	users  port.UserDirectory
	signer *security.TokenSigner
	logger *zap.Logger
}

// NewUserInfoService constructs a UserInfoService.
func NewUserInfoService(users port.UserDirectory, signer *security.TokenSigner, logger *zap.Logger) *UserInfoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserInfoService{
		users:  users,
		signer: signer,
		logger: logger,
	}
}

// Claims validates the access token and returns the subject's claims
// filtered by the token's granted scopes. A subject that has vanished
// from the directory is reported as an invalid credential, not as a
// lookup failure: the token no longer identifies anyone.
func (s *UserInfoService) Claims(ctx context.Context, accessToken string) (map[string]any, error) {
	parsed, err := s.signer.ParseAccessToken(accessToken)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrExpiredToken):
			return nil, ErrExpiredAccessToken
		case errors.Is(err, security.ErrInvalidToken):
			return nil, ErrInvalidAccessToken
		default:
			return nil, fmt.Errorf("parse access token: %w", err)
		}
	}

	subject, err := s.users.GetSubject(ctx, parsed.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidAccessToken
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}

	claims := map[string]any{
		domain.ClaimSubject: subject.ID,
	}

	include := func(claimType string, value any) {
		if str, ok := value.(string); ok && str == "" {
			return
		}
		if _, identity := domain.DestinationsFor(claimType, parsed.Scopes); identity {
			claims[claimType] = value
		}
	}

	include(domain.ClaimName, subject.DisplayName)
	include(domain.ClaimGivenName, subject.GivenName)
	include(domain.ClaimFamilyName, subject.FamilyName)
	include(domain.ClaimEmail, subject.Email)
	if domain.HasScope(parsed.Scopes, domain.ScopeEmail) {
		claims[domain.ClaimEmailVerified] = subject.EmailVerified
	}
	if parsed.SessionID != "" {
		claims[domain.ClaimSessionID] = parsed.SessionID
	}

	return claims, nil
}
