package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/infra/security"
)

func newRevocationFixture() (*RevocationService, *stubSessionRepository, *stubTokenRepository, *stubEventPublisher, time.Time) {
	sessions := newStubSessionRepository()
	tokens := newStubTokenRepository()
	events := &stubEventPublisher{}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lifecycle := NewSessionService(sessions, tokens, events, 720*time.Hour, nil)
	lifecycle.WithClock(func() time.Time { return now })

	return NewRevocationService(tokens, lifecycle, nil), sessions, tokens, events, now
}

func TestRevokeTokenUnknownReferenceIsSilent(t *testing.T) {
	service, _, _, events, _ := newRevocationFixture()

	if err := service.RevokeToken(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("revoke unknown token: %v", err)
	}
	if len(events.revoked) != 0 {
		t.Fatal("no events expected for an unknown reference")
	}
}

func TestRevokeTokenTearsDownSession(t *testing.T) {
	service, sessions, tokens, events, now := newRevocationFixture()

	seedSession(sessions, "s1", "user-1", now.Add(time.Hour))
	tokens.tokens["t1"] = domain.RefreshToken{ID: "t1", SessionID: "s1", CreatedAt: now}

	if err := service.RevokeToken(context.Background(), "t1"); err != nil {
		t.Fatalf("revoke token: %v", err)
	}

	if session := sessions.sessions["s1"]; session.RevokedAt == nil {
		t.Fatal("owning session should be revoked")
	}
	if token := tokens.tokens["t1"]; token.RevokedAt == nil {
		t.Fatal("token should be revoked")
	}
	if len(events.revoked) != 1 {
		t.Fatalf("revoked events = %d, want 1", len(events.revoked))
	}
	if events.revoked[0].NotifyUser {
		t.Fatal("endpoint-initiated revocation is not a security alert")
	}
}

func TestRevokeTokenAcceptsFullWireFormat(t *testing.T) {
	service, sessions, tokens, _, now := newRevocationFixture()

	seedSession(sessions, "s1", "user-1", now.Add(time.Hour))
	tokens.tokens["t1"] = domain.RefreshToken{ID: "t1", SessionID: "s1", CreatedAt: now}

	raw := security.EncodeRefreshToken("t1", "whatever-secret")
	if err := service.RevokeToken(context.Background(), raw); err != nil {
		t.Fatalf("revoke token: %v", err)
	}

	if token := tokens.tokens["t1"]; token.RevokedAt == nil {
		t.Fatal("token should be revoked via its full wire form")
	}
}

func TestRevokeTokenIdempotent(t *testing.T) {
	service, sessions, tokens, events, now := newRevocationFixture()

	seedSession(sessions, "s1", "user-1", now.Add(time.Hour))
	tokens.tokens["t1"] = domain.RefreshToken{ID: "t1", SessionID: "s1", CreatedAt: now}

	if err := service.RevokeToken(context.Background(), "t1"); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := service.RevokeToken(context.Background(), "t1"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}

	if len(events.revoked) != 1 {
		t.Fatalf("revoked events = %d, want 1", len(events.revoked))
	}
}

func TestRevokeTokenSurvivesSessionTeardownFailure(t *testing.T) {
	service, sessions, tokens, _, now := newRevocationFixture()

	seedSession(sessions, "s1", "user-1", now.Add(time.Hour))
	tokens.tokens["t1"] = domain.RefreshToken{ID: "t1", SessionID: "s1", CreatedAt: now}
	sessions.revokeErr = errStubFailure

	if err := service.RevokeToken(context.Background(), "t1"); err != nil {
		t.Fatalf("revoke must not surface session teardown errors, got: %v", err)
	}
	if token := tokens.tokens["t1"]; token.RevokedAt == nil {
		t.Fatal("token must be revoked even when session teardown fails")
	}
}

func TestRevokeTokenOrphanedToken(t *testing.T) {
	service, _, tokens, _, now := newRevocationFixture()

	tokens.tokens["t1"] = domain.RefreshToken{ID: "t1", SessionID: "gone", CreatedAt: now}

	if err := service.RevokeToken(context.Background(), "t1"); err != nil {
		t.Fatalf("revoke orphaned token: %v", err)
	}
	if token := tokens.tokens["t1"]; token.RevokedAt == nil {
		t.Fatal("orphaned token should still be revoked")
	}
}
