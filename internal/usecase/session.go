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
	"github.com/mentora/tutoring-auth/internal/repository"
)

var (
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionForbidden indicates that the session is not owned by the caller.
	ErrSessionForbidden = errors.New("session not owned by user")
	// ErrSessionAlreadyRevoked indicates the session has already been terminated.
	ErrSessionAlreadyRevoked = errors.New("session already revoked")
)

// SessionService coordinates session listing and revocation workflows.
// All session terminations funnel through here so token revocation, the
// revocation cache, and event publication stay in step.
type SessionService struct {
	sessions      port.SessionRepository
	tokens        port.TokenRepository
	events        port.EventPublisher
	revocations   port.SessionRevocationCache
	revocationTTL time.Duration
	refreshTTL    time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions port.SessionRepository, tokens port.TokenRepository, events port.EventPublisher, refreshTTL time.Duration, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	service := &SessionService{
		sessions:   sessions,
		tokens:     tokens,
		events:     events,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the internal clock for deterministic tests.
func (s *SessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithRevocationCache injects the fast-path revocation cache.
func (s *SessionService) WithRevocationCache(cache port.SessionRevocationCache, ttl time.Duration) *SessionService {
	if cache != nil {
		s.revocations = cache
		if ttl > 0 {
			s.revocationTTL = ttl
		}
		if s.revocationTTL <= 0 {
			s.revocationTTL = 15 * time.Minute
		}
	}
	return s
}

// Create records a new device session for the user. Called on the first
// authorization-code exchange from a device.
func (s *SessionService) Create(ctx context.Context, userID, authorizationID string, info domain.ClientInfo) (*domain.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	now := s.now()
	session := domain.Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		AuthorizationID:  authorizationID,
		Status:           domain.SessionStatusActive,
		RefreshExpiresAt: now.Add(s.refreshTTL),
		CreatedAt:        now,
		LastActivityAt:   now,
	}
	if info.DeviceID != "" {
		session.DeviceID = &info.DeviceID
	}
	if info.DeviceName != "" {
		session.DeviceName = &info.DeviceName
	}
	if info.UserAgent != "" {
		session.UserAgent = &info.UserAgent
	}
	if info.IPAddress != "" {
		session.IPAddress = &info.IPAddress
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session, nil
}

// GetSession fetches a session and ensures it belongs to the supplied user.
func (s *SessionService) GetSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if userID != "" && !strings.EqualFold(session.UserID, userID) {
		return nil, ErrSessionForbidden
	}

	return session, nil
}

// ListSessions returns the user's sessions that are still active. Expiry
// is evaluated lazily against the current clock, so a session whose
// refresh window has elapsed never shows up even before any persisted
// state changes.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	sessions, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := s.now()
	active := make([]domain.Session, 0, len(sessions))
	for _, session := range sessions {
		if !session.IsActive(now) {
			continue
		}
		active = append(active, session)
	}

	return active, nil
}

// UpdateActivity records refresh activity on the session.
func (s *SessionService) UpdateActivity(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if err := s.sessions.Touch(ctx, sessionID, s.now()); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Revoke terminates the session regardless of ownership. All refresh
// tokens belonging to it are revoked in the same pass; cache and event
// propagation are best effort and never fail the revocation itself.
// Returns false when the session was already revoked.
func (s *SessionService) Revoke(ctx context.Context, sessionID, reason string, notify bool) (bool, error) {
	session, err := s.GetSession(ctx, "", sessionID)
	if err != nil {
		return false, err
	}

	now := s.now()
	changed, err := s.sessions.Revoke(ctx, sessionID, reason, notify, now)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	if !changed {
		return false, nil
	}

	if s.tokens != nil {
		if _, err := s.tokens.RevokeBySession(ctx, sessionID, now); err != nil {
			s.logger.Warn("revoke session tokens failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	if s.revocations != nil {
		if err := s.revocations.MarkSessionRevoked(ctx, sessionID, reason, s.revocationTTL); err != nil {
			s.logger.Warn("cache session revocation failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	if s.events != nil {
		event := domain.SessionRevokedEvent{
			EventID:    uuid.NewString(),
			SessionID:  sessionID,
			UserID:     session.UserID,
			DeviceName: session.DeviceName,
			RevokedAt:  now,
			Reason:     reason,
			NotifyUser: notify || session.NotifyUser,
		}
		if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
			s.logger.Warn("publish session revoked failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	return true, nil
}

// RevokeOwned terminates a session on behalf of its owner. A session
// belonging to someone else yields ErrSessionForbidden without revealing
// whether it exists in another account.
func (s *SessionService) RevokeOwned(ctx context.Context, userID, sessionID, reason string) error {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if session.RevokedAt != nil {
		return ErrSessionAlreadyRevoked
	}

	if reason == "" {
		reason = "user_logout"
	}

	changed, err := s.Revoke(ctx, sessionID, reason, false)
	if err != nil {
		return err
	}
	if !changed {
		return ErrSessionAlreadyRevoked
	}

	return nil
}

// RevokeBatch terminates several of the user's sessions in one call.
// Sessions that are missing, foreign, or already revoked are skipped;
// the returned count covers only sessions that actually changed state.
func (s *SessionService) RevokeBatch(ctx context.Context, userID string, sessionIDs []string, reason string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("user id is required")
	}

	revoked := 0
	for _, sessionID := range sessionIDs {
		err := s.RevokeOwned(ctx, userID, sessionID, reason)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) ||
				errors.Is(err, ErrSessionForbidden) ||
				errors.Is(err, ErrSessionAlreadyRevoked) {
				continue
			}
			return revoked, err
		}
		revoked++
	}

	return revoked, nil
}
