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

const (
	// GrantTypeAuthorizationCode is the authorization_code grant.
	GrantTypeAuthorizationCode = "authorization_code"
	// GrantTypeRefreshToken is the refresh_token grant.
	GrantTypeRefreshToken = "refresh_token"

	replayRevokeReason   = "refresh_token_replay"
	disabledRevokeReason = "subject_disabled"
)

var (
	// ErrUnsupportedGrantType indicates a grant_type outside the supported pair.
	ErrUnsupportedGrantType = errors.New("unsupported grant type")
	// ErrInvalidGrant indicates the presented code or refresh token cannot
	// be redeemed. Deliberately coarse: callers never learn whether the
	// credential was missing, expired, revoked, or replayed.
	ErrInvalidGrant = errors.New("invalid grant")
)

// ExchangeInput carries the parsed token-endpoint request.
type ExchangeInput struct {
	GrantType    string
	Code         string
	RefreshToken string
	ClientID     string
	IPAddress    string
	UserAgent    string
}

// ExchangeResult carries the issued token set.
type ExchangeResult struct {
	AccessToken      string
	IdentityToken    string
	RefreshToken     string
	RefreshExpiresAt time.Time
	ExpiresIn        int
	Scopes           []string
	SessionID        string
}

// TokenExchangeService redeems authorization codes and rotates refresh
// tokens. A presented refresh token that is already revoked, or that
// loses the rotation race to a concurrent request, is treated as a
// replay: the whole session is torn down and the owner is notified.
type TokenExchangeService struct {
	users      port.UserDirectory
	tokens     port.TokenRepository
	grants     port.GrantRepository
	resolver   port.ClientInfoResolver
	sessions   *SessionService
	store      port.SessionRepository
	events     port.EventPublisher
	signer     *security.TokenSigner
	refreshTTL time.Duration
	accessTTL  time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewTokenExchangeService constructs a TokenExchangeService.
func NewTokenExchangeService(
	users port.UserDirectory,
	tokens port.TokenRepository,
	grants port.GrantRepository,
	store port.SessionRepository,
	sessions *SessionService,
	resolver port.ClientInfoResolver,
	events port.EventPublisher,
	signer *security.TokenSigner,
	refreshTTL, accessTTL time.Duration,
	logger *zap.Logger,
) *TokenExchangeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	service := &TokenExchangeService{
		users:      users,
		tokens:     tokens,
		grants:     grants,
		store:      store,
		sessions:   sessions,
		resolver:   resolver,
		events:     events,
		signer:     signer,
		refreshTTL: refreshTTL,
		accessTTL:  accessTTL,
		logger:     logger,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the internal clock for deterministic tests.
func (s *TokenExchangeService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Exchange dispatches on grant_type.
func (s *TokenExchangeService) Exchange(ctx context.Context, input ExchangeInput) (*ExchangeResult, error) {
	switch input.GrantType {
	case GrantTypeAuthorizationCode:
		return s.exchangeCode(ctx, input)
	case GrantTypeRefreshToken:
		return s.exchangeRefresh(ctx, input)
	default:
		return nil, ErrUnsupportedGrantType
	}
}

func (s *TokenExchangeService) exchangeCode(ctx context.Context, input ExchangeInput) (*ExchangeResult, error) {
	if strings.TrimSpace(input.Code) == "" {
		return nil, ErrInvalidGrant
	}

	now := s.now()
	grant, err := s.grants.RedeemByCodeHash(ctx, security.HashAuthorizationCode(input.Code), now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("redeem authorization code: %w", err)
	}

	subject, err := s.loadSubject(ctx, grant.UserID)
	if err != nil {
		return nil, err
	}

	info := domain.ClientInfo{IPAddress: input.IPAddress, UserAgent: input.UserAgent}
	if s.resolver != nil {
		resolved, err := s.resolver.Resolve(ctx, input.IPAddress, input.UserAgent)
		if err != nil {
			s.logger.Warn("resolve client info failed", zap.Error(err))
		} else {
			info = resolved
		}
	}

	session, err := s.sessions.Create(ctx, subject.ID, grant.ID, info)
	if err != nil {
		return nil, err
	}

	if err := s.grants.AttachSession(ctx, grant.ID, session.ID); err != nil {
		s.logger.Warn("attach session to grant failed",
			zap.String("grant_id", grant.ID),
			zap.Error(err),
		)
	}

	rawRefresh, refreshExpiresAt, err := s.mintRefreshToken(ctx, session.ID, nil, now)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(*subject, session.ID, grant.Scopes, rawRefresh, refreshExpiresAt)
}

func (s *TokenExchangeService) exchangeRefresh(ctx context.Context, input ExchangeInput) (*ExchangeResult, error) {
	tokenID, secret, err := security.DecodeRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, ErrInvalidGrant
	}

	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	// Possession comes first: a wrong secret proves nothing about the
	// stored token having leaked, so it never triggers teardown.
	if !security.VerifyTokenSecret(token.Salt, secret, token.TokenHash) {
		return nil, ErrInvalidGrant
	}

	// An authentic but revoked token means its value leaked: the
	// legitimate client already rotated past it, so whoever holds this
	// copy is replaying. Tear the session down before failing the grant.
	if token.IsRevoked() {
		s.handleReplay(ctx, token, input)
		return nil, ErrInvalidGrant
	}

	session, err := s.sessions.GetSession(ctx, "", token.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	now := s.now()
	if !session.IsActive(now) {
		return nil, ErrInvalidGrant
	}

	subject, err := s.users.GetSubject(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	if !subject.CanAuthenticate() {
		if _, err := s.sessions.Revoke(ctx, session.ID, disabledRevokeReason, false); err != nil {
			s.logger.Warn("revoke session for disabled subject failed",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}
		return nil, ErrInvalidGrant
	}

	scopes, err := s.grantedScopes(ctx, session.AuthorizationID)
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshExpiresAt, err := s.rotateRefreshToken(ctx, token, input, now)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.UpdateActivity(ctx, session.ID); err != nil {
		s.logger.Warn("update session activity failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	return s.issueTokens(*subject, session.ID, scopes, rawRefresh, refreshExpiresAt)
}

func (s *TokenExchangeService) loadSubject(ctx context.Context, userID string) (*domain.Subject, error) {
	subject, err := s.users.GetSubject(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	if !subject.CanAuthenticate() {
		return nil, ErrInvalidGrant
	}
	return subject, nil
}

// mintRefreshToken creates a fresh refresh token for the session and
// records it as the session's single live token.
func (s *TokenExchangeService) mintRefreshToken(ctx context.Context, sessionID string, rotatedFrom *string, now time.Time) (string, time.Time, error) {
	secret, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate refresh secret: %w", err)
	}
	salt, err := security.NewTokenSalt()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token salt: %w", err)
	}

	token := domain.RefreshToken{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		TokenHash:     security.HashTokenSecret(salt, secret),
		Salt:          salt,
		RotatedFromID: rotatedFrom,
		CreatedAt:     now,
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return "", time.Time{}, fmt.Errorf("create refresh token: %w", err)
	}

	expiresAt := now.Add(s.refreshTTL)
	if err := s.store.SetRefreshToken(ctx, sessionID, token.ID, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("bind refresh token to session: %w", err)
	}

	return security.EncodeRefreshToken(token.ID, secret), expiresAt, nil
}

// rotateRefreshToken atomically replaces the presented token. The unique
// successor constraint arbitrates concurrent rotations; the loser sees
// repository.ErrConflict and is handled as a replay.
func (s *TokenExchangeService) rotateRefreshToken(ctx context.Context, old *domain.RefreshToken, input ExchangeInput, now time.Time) (string, time.Time, error) {
	secret, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate refresh secret: %w", err)
	}
	salt, err := security.NewTokenSalt()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token salt: %w", err)
	}

	next := domain.RefreshToken{
		ID:            uuid.NewString(),
		SessionID:     old.SessionID,
		TokenHash:     security.HashTokenSecret(salt, secret),
		Salt:          salt,
		RotatedFromID: &old.ID,
		CreatedAt:     now,
	}

	if err := s.tokens.Rotate(ctx, old.ID, next, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.handleReplay(ctx, old, input)
			return "", time.Time{}, ErrInvalidGrant
		}
		return "", time.Time{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	expiresAt := now.Add(s.refreshTTL)
	if err := s.store.SetRefreshToken(ctx, old.SessionID, next.ID, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("bind refresh token to session: %w", err)
	}

	return security.EncodeRefreshToken(next.ID, secret), expiresAt, nil
}

// handleReplay revokes the whole session with owner notification and
// emits a replay event. Best effort: the exchange already failed.
func (s *TokenExchangeService) handleReplay(ctx context.Context, token *domain.RefreshToken, input ExchangeInput) {
	s.logger.Warn("refresh token replay detected",
		zap.String("token_id", token.ID),
		zap.String("session_id", token.SessionID),
	)

	userID := ""
	if session, err := s.sessions.GetSession(ctx, "", token.SessionID); err == nil {
		userID = session.UserID
	}

	if _, err := s.sessions.Revoke(ctx, token.SessionID, replayRevokeReason, true); err != nil {
		s.logger.Error("revoke session after replay failed",
			zap.String("session_id", token.SessionID),
			zap.Error(err),
		)
	}

	if s.events != nil {
		event := domain.ReplayDetectedEvent{
			EventID:    uuid.NewString(),
			SessionID:  token.SessionID,
			UserID:     userID,
			TokenID:    token.ID,
			DetectedAt: s.now(),
		}
		if input.IPAddress != "" {
			event.IPAddress = &input.IPAddress
		}
		if input.UserAgent != "" {
			event.UserAgent = &input.UserAgent
		}
		if err := s.events.PublishReplayDetected(ctx, event); err != nil {
			s.logger.Warn("publish replay detected failed",
				zap.String("session_id", token.SessionID),
				zap.Error(err),
			)
		}
	}
}

// grantedScopes recovers the scopes granted at authorization time from
// the grant the session was created under.
func (s *TokenExchangeService) grantedScopes(ctx context.Context, grantID string) ([]string, error) {
	if grantID == "" {
		return []string{domain.ScopeOpenID}, nil
	}

	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []string{domain.ScopeOpenID}, nil
		}
		return nil, fmt.Errorf("get authorization grant: %w", err)
	}

	return grant.Scopes, nil
}

func (s *TokenExchangeService) issueTokens(subject domain.Subject, sessionID string, scopes []string, rawRefresh string, refreshExpiresAt time.Time) (*ExchangeResult, error) {
	accessToken, err := s.signer.IssueAccessToken(subject, sessionID, scopes)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	identityToken, err := s.signer.IssueIdentityToken(subject, sessionID, scopes)
	if err != nil {
		return nil, fmt.Errorf("issue identity token: %w", err)
	}

	return &ExchangeResult{
		AccessToken:      accessToken,
		IdentityToken:    identityToken,
		RefreshToken:     rawRefresh,
		RefreshExpiresAt: refreshExpiresAt,
		ExpiresIn:        int(s.accessTTL.Seconds()),
		Scopes:           scopes,
		SessionID:        sessionID,
	}, nil
}
