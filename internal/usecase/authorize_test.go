package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/infra/security"
)

func newAuthorizeFixture() (*AuthorizeService, *stubUserDirectory, *stubGrantRepository, time.Time) {
	users := &stubUserDirectory{subjects: map[string]domain.Subject{
		"user-1": {ID: "user-1", Status: domain.SubjectStatusActive, DisplayName: "Alex Tutor"},
	}}
	grants := newStubGrantRepository()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := NewAuthorizeService(users, grants, &stubClientInfoResolver{info: domain.ClientInfo{DeviceID: "device-1"}}, 2*time.Minute, nil)
	service.WithClock(func() time.Time { return now })

	return service, users, grants, now
}

func TestAuthorizeFiltersScopes(t *testing.T) {
	service, _, grants, now := newAuthorizeFixture()

	result, err := service.Authorize(context.Background(), AuthorizeInput{
		SubjectID:       "user-1",
		ClientID:        "web",
		RequestedScopes: []string{domain.ScopeOpenID, "admin", domain.ScopeProfile, domain.ScopeProfile},
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	want := []string{domain.ScopeOpenID, domain.ScopeProfile}
	if len(result.GrantedScopes) != len(want) {
		t.Fatalf("scopes = %v, want %v", result.GrantedScopes, want)
	}
	for i, scope := range want {
		if result.GrantedScopes[i] != scope {
			t.Fatalf("scopes = %v, want %v", result.GrantedScopes, want)
		}
	}

	grant := grants.grants[result.GrantID]
	if grant.UserID != "user-1" {
		t.Fatalf("grant user = %q", grant.UserID)
	}
	if grant.DeviceID == nil || *grant.DeviceID != "device-1" {
		t.Fatal("grant should carry the resolved device id")
	}
	if !grant.ExpiresAt.Equal(now.Add(2 * time.Minute)) {
		t.Fatalf("grant expires at %v", grant.ExpiresAt)
	}

	// The raw code must not be stored anywhere.
	if _, ok := grants.byHash[result.Code]; ok {
		t.Fatal("code stored unhashed")
	}
	if _, ok := grants.byHash[security.HashAuthorizationCode(result.Code)]; !ok {
		t.Fatal("grant not reachable by code hash")
	}
}

func TestAuthorizeDefaultsToOpenID(t *testing.T) {
	service, _, _, _ := newAuthorizeFixture()

	for _, requested := range [][]string{nil, {"admin", "payments"}} {
		result, err := service.Authorize(context.Background(), AuthorizeInput{
			SubjectID:       "user-1",
			ClientID:        "web",
			RequestedScopes: requested,
		})
		if err != nil {
			t.Fatalf("authorize %v: %v", requested, err)
		}
		if len(result.GrantedScopes) != 1 || result.GrantedScopes[0] != domain.ScopeOpenID {
			t.Fatalf("scopes = %v, want [openid]", result.GrantedScopes)
		}
	}
}

func TestAuthorizeDisabledSubject(t *testing.T) {
	service, users, _, _ := newAuthorizeFixture()

	subject := users.subjects["user-1"]
	subject.Status = domain.SubjectStatusDisabled
	users.subjects["user-1"] = subject

	_, err := service.Authorize(context.Background(), AuthorizeInput{SubjectID: "user-1", ClientID: "web"})
	if !errors.Is(err, ErrSubjectDisabled) {
		t.Fatalf("err = %v, want ErrSubjectDisabled", err)
	}
}

func TestAuthorizeUnknownSubject(t *testing.T) {
	service, _, _, _ := newAuthorizeFixture()

	_, err := service.Authorize(context.Background(), AuthorizeInput{SubjectID: "ghost", ClientID: "web"})
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("err = %v, want ErrSubjectNotFound", err)
	}
}
