package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mentora/tutoring-auth/internal/core/domain"
)

func seedSession(repo *stubSessionRepository, id, userID string, expiresAt time.Time) domain.Session {
	session := domain.Session{
		ID:               id,
		UserID:           userID,
		AuthorizationID:  "grant-" + id,
		Status:           domain.SessionStatusActive,
		RefreshExpiresAt: expiresAt,
		CreatedAt:        expiresAt.Add(-time.Hour),
		LastActivityAt:   expiresAt.Add(-time.Hour),
	}
	repo.sessions[id] = session
	return session
}

func newSessionFixture() (*SessionService, *stubSessionRepository, *stubTokenRepository, *stubEventPublisher, *stubRevocationCache, time.Time) {
	sessions := newStubSessionRepository()
	tokens := newStubTokenRepository()
	events := &stubEventPublisher{}
	cache := newStubRevocationCache()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := NewSessionService(sessions, tokens, events, 720*time.Hour, nil)
	service.WithClock(func() time.Time { return now })
	service.WithRevocationCache(cache, 15*time.Minute)

	return service, sessions, tokens, events, cache, now
}

func TestListSessionsFiltersExpiredLazily(t *testing.T) {
	service, sessions, _, _, _, now := newSessionFixture()

	seedSession(sessions, "live", "user-1", now.Add(time.Hour))
	seedSession(sessions, "stale", "user-1", now.Add(-time.Minute))
	seedSession(sessions, "other", "user-2", now.Add(time.Hour))

	list, err := service.ListSessions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}

	if len(list) != 1 {
		t.Fatalf("sessions = %d, want 1", len(list))
	}
	if list[0].ID != "live" {
		t.Fatalf("session id = %q, want live", list[0].ID)
	}

	// Expiry is evaluated against the clock; nothing was written back.
	if stale := sessions.sessions["stale"]; stale.RevokedAt != nil {
		t.Fatal("lazy expiry must not mutate the stored session")
	}
}

func TestRevokeCascades(t *testing.T) {
	service, sessions, tokens, events, cache, now := newSessionFixture()

	seedSession(sessions, "s1", "user-1", now.Add(time.Hour))
	tokens.tokens["t1"] = domain.RefreshToken{ID: "t1", SessionID: "s1", CreatedAt: now}

	changed, err := service.Revoke(context.Background(), "s1", "user_logout", false)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !changed {
		t.Fatal("expected state change")
	}

	if token := tokens.tokens["t1"]; token.RevokedAt == nil {
		t.Fatal("session tokens should be revoked with the session")
	}
	if revoked, reason, _ := cache.IsSessionRevoked(context.Background(), "s1"); !revoked || reason != "user_logout" {
		t.Fatalf("cache revoked=%v reason=%q", revoked, reason)
	}
	if len(events.revoked) != 1 {
		t.Fatalf("revoked events = %d, want 1", len(events.revoked))
	}
	if events.revoked[0].NotifyUser {
		t.Fatal("user logout must not raise a security notification")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	service, sessions, _, events, _, now := newSessionFixture()
	seedSession(sessions, "s1", "user-1", now.Add(time.Hour))

	if _, err := service.Revoke(context.Background(), "s1", "user_logout", false); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	changed, err := service.Revoke(context.Background(), "s1", "another_reason", true)
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if changed {
		t.Fatal("second revoke must be a no-op")
	}
	if len(events.revoked) != 1 {
		t.Fatalf("revoked events = %d, want 1", len(events.revoked))
	}

	// Original reason survives.
	session := sessions.sessions["s1"]
	if session.RevokeReason == nil || *session.RevokeReason != "user_logout" {
		t.Fatalf("revoke reason = %v", session.RevokeReason)
	}
}

func TestRevokeOwnedForeignSession(t *testing.T) {
	service, sessions, _, _, _, now := newSessionFixture()
	seedSession(sessions, "s1", "user-2", now.Add(time.Hour))

	err := service.RevokeOwned(context.Background(), "user-1", "s1", "")
	if !errors.Is(err, ErrSessionForbidden) {
		t.Fatalf("err = %v, want ErrSessionForbidden", err)
	}

	if session := sessions.sessions["s1"]; session.RevokedAt != nil {
		t.Fatal("foreign session must not be revoked")
	}
}

func TestRevokeOwnedAlreadyRevoked(t *testing.T) {
	service, sessions, _, _, _, now := newSessionFixture()
	session := seedSession(sessions, "s1", "user-1", now.Add(time.Hour))
	session.Revoke(now.Add(-time.Minute), "user_logout", false)
	sessions.sessions["s1"] = session

	err := service.RevokeOwned(context.Background(), "user-1", "s1", "")
	if !errors.Is(err, ErrSessionAlreadyRevoked) {
		t.Fatalf("err = %v, want ErrSessionAlreadyRevoked", err)
	}
}

func TestRevokeOwnedMissingSession(t *testing.T) {
	service, _, _, _, _, _ := newSessionFixture()

	err := service.RevokeOwned(context.Background(), "user-1", "missing", "")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestRevokeBatchSkipsUnrevocable(t *testing.T) {
	service, sessions, _, _, _, now := newSessionFixture()

	seedSession(sessions, "s1", "user-1", now.Add(time.Hour))
	seedSession(sessions, "s2", "user-1", now.Add(time.Hour))
	seedSession(sessions, "foreign", "user-2", now.Add(time.Hour))

	revoked, err := service.RevokeBatch(context.Background(), "user-1", []string{"s1", "missing", "foreign", "s2", "s1"}, "user_logout")
	if err != nil {
		t.Fatalf("revoke batch: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("revoked = %d, want 2", revoked)
	}

	if session := sessions.sessions["foreign"]; session.RevokedAt != nil {
		t.Fatal("foreign session must survive the batch")
	}
}

func TestRevocationCacheFailureDoesNotFailRevoke(t *testing.T) {
	service, sessions, _, events, cache, now := newSessionFixture()
	seedSession(sessions, "s1", "user-1", now.Add(time.Hour))
	cache.err = errStubFailure

	changed, err := service.Revoke(context.Background(), "s1", "user_logout", false)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !changed {
		t.Fatal("expected state change")
	}
	if len(events.revoked) != 1 {
		t.Fatal("event should still be published")
	}
}
