package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/infra/security"
	"github.com/mentora/tutoring-auth/internal/repository"
)

var (
	// ErrSubjectNotFound indicates the subject does not exist in the directory.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrSubjectDisabled indicates the subject may no longer sign in.
	ErrSubjectDisabled = errors.New("subject disabled")
)

// AuthorizeInput carries the parameters of an authorization request made
// by an already-authenticated subject.
type AuthorizeInput struct {
	SubjectID       string
	ClientID        string
	RequestedScopes []string
	IPAddress       string
	UserAgent       string
}

// AuthorizeResult carries the one-time code handed back to the client.
type AuthorizeResult struct {
	Code          string
	GrantID       string
	GrantedScopes []string
	ExpiresAt     time.Time
}

// AuthorizeService issues authorization-code grants. Requested scopes are
// filtered against the allow-list before the grant is persisted, so a
// grant never records a scope the platform does not recognise.
type AuthorizeService struct {
	users    port.UserDirectory
	grants   port.GrantRepository
	resolver port.ClientInfoResolver
	codeTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthorizeService constructs an AuthorizeService.
func NewAuthorizeService(users port.UserDirectory, grants port.GrantRepository, resolver port.ClientInfoResolver, codeTTL time.Duration, logger *zap.Logger) *AuthorizeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if codeTTL <= 0 {
		codeTTL = 2 * time.Minute
	}
	service := &AuthorizeService{
		users:    users,
		grants:   grants,
		resolver: resolver,
		codeTTL:  codeTTL,
		logger:   logger,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuthorizeService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Authorize validates the subject, filters the requested scopes, and
// mints a single-use authorization code bound to the subject and device.
func (s *AuthorizeService) Authorize(ctx context.Context, input AuthorizeInput) (*AuthorizeResult, error) {
	if strings.TrimSpace(input.SubjectID) == "" {
		return nil, fmt.Errorf("subject id is required")
	}
	if strings.TrimSpace(input.ClientID) == "" {
		return nil, fmt.Errorf("client id is required")
	}

	subject, err := s.users.GetSubject(ctx, input.SubjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	if !subject.CanAuthenticate() {
		return nil, ErrSubjectDisabled
	}

	scopes := domain.FilterScopes(input.RequestedScopes)

	var deviceID *string
	if s.resolver != nil {
		info, err := s.resolver.Resolve(ctx, input.IPAddress, input.UserAgent)
		if err != nil {
			s.logger.Warn("resolve client info failed", zap.Error(err))
		} else if info.DeviceID != "" {
			deviceID = &info.DeviceID
		}
	}

	code, err := security.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate authorization code: %w", err)
	}

	now := s.now()
	grant := domain.AuthorizationGrant{
		ID:        uuid.NewString(),
		UserID:    subject.ID,
		ClientID:  input.ClientID,
		DeviceID:  deviceID,
		Scopes:    scopes,
		CreatedAt: now,
		ExpiresAt: now.Add(s.codeTTL),
	}

	if err := s.grants.Create(ctx, grant, security.HashAuthorizationCode(code)); err != nil {
		return nil, fmt.Errorf("create authorization grant: %w", err)
	}

	return &AuthorizeResult{
		Code:          code,
		GrantID:       grant.ID,
		GrantedScopes: scopes,
		ExpiresAt:     grant.ExpiresAt,
	}, nil
}
