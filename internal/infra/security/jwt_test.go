package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mentora/tutoring-auth/internal/core/domain"
)

func newTestSigner(t *testing.T) (*TokenSigner, func() time.Time) {
	t.Helper()

	keys, err := NewEphemeralKeyProvider("test-kid")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	clock := func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	signer := NewTokenSigner(keys, "test-kid", "https://auth.test", "tutoring_api", 15*time.Minute, 15*time.Minute)
	signer.WithClock(clock)
	return signer, clock
}

func testSubject() domain.Subject {
	return domain.Subject{
		ID:            "user-1",
		Status:        domain.SubjectStatusActive,
		Email:         "alex@example.com",
		EmailVerified: true,
		DisplayName:   "Alex Tutor",
		GivenName:     "Alex",
		FamilyName:    "Tutor",
		Roles:         []string{"tutor"},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	signer, _ := newTestSigner(t)

	raw, err := signer.IssueAccessToken(testSubject(), "session-1", []string{"openid", "email"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := signer.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.SessionID != "session-1" {
		t.Fatalf("unexpected session id %q", claims.SessionID)
	}
	if len(claims.Scopes) != 2 {
		t.Fatalf("unexpected scopes %v", claims.Scopes)
	}
	if claims.Issuer != "https://auth.test" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestAccessTokenCarriesFullClaimSet(t *testing.T) {
	signer, _ := newTestSigner(t)

	// Profile and email claims land in the access token regardless of
	// scope; only the identity token is scope-gated.
	raw, err := signer.IssueAccessToken(testSubject(), "session-1", []string{"openid"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := signer.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if claims.Email != "alex@example.com" {
		t.Fatalf("expected email claim, got %q", claims.Email)
	}
	if claims.Name != "Alex Tutor" {
		t.Fatalf("expected name claim, got %q", claims.Name)
	}
	if len(claims.Roles) == 0 {
		t.Fatal("expected role claim in the access token")
	}
}

func TestParseExpiredToken(t *testing.T) {
	signer, _ := newTestSigner(t)

	raw, err := signer.IssueAccessToken(testSubject(), "session-1", []string{"openid"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	signer.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	})

	if _, err := signer.ParseAccessToken(raw); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseRejectsForeignIssuer(t *testing.T) {
	signer, _ := newTestSigner(t)

	keys, err := NewEphemeralKeyProvider("test-kid")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	foreign := NewTokenSigner(keys, "test-kid", "https://other.test", "tutoring_api", 15*time.Minute, 15*time.Minute)
	foreign.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	raw, err := foreign.IssueAccessToken(testSubject(), "session-1", []string{"openid"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := signer.ParseAccessToken(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	signer, _ := newTestSigner(t)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := signer.ParseAccessToken(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}

func TestIdentityTokenCarriesProfileClaims(t *testing.T) {
	signer, _ := newTestSigner(t)

	raw, err := signer.IssueIdentityToken(testSubject(), "session-1", []string{"openid", "profile"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := signer.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if claims.Name != "Alex Tutor" {
		t.Fatalf("expected name claim, got %q", claims.Name)
	}
	if claims.GivenName != "Alex" || claims.FamilyName != "Tutor" {
		t.Fatalf("expected given/family names, got %q %q", claims.GivenName, claims.FamilyName)
	}
	if claims.Email != "" {
		t.Fatalf("email must not appear without the email scope, got %q", claims.Email)
	}
}

func TestRenderJWKSListsSigningKey(t *testing.T) {
	keys, err := NewEphemeralKeyProvider("test-kid")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	payload, err := RenderJWKS(keys)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	body := string(payload)
	for _, needle := range []string{`"kid":"test-kid"`, `"kty":"RSA"`, `"alg":"RS256"`, `"use":"sig"`} {
		if !strings.Contains(body, needle) {
			t.Fatalf("expected jwks to contain %s, got %s", needle, body)
		}
	}
}
