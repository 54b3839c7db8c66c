package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/infra/directory"
	"github.com/mentora/tutoring-auth/internal/transport/http/middleware"
	"github.com/mentora/tutoring-auth/internal/usecase"
)

type stubGrantStore struct {
	created []domain.AuthorizationGrant
}

func (s *stubGrantStore) Create(_ context.Context, grant domain.AuthorizationGrant, _ string) error {
	s.created = append(s.created, grant)
	return nil
}

func (s *stubGrantStore) GetByID(_ context.Context, _ string) (*domain.AuthorizationGrant, error) {
	return nil, errors.New("unexpected call: GetByID")
}

func (s *stubGrantStore) RedeemByCodeHash(_ context.Context, _ string, _ time.Time) (*domain.AuthorizationGrant, error) {
	return nil, errors.New("unexpected call: RedeemByCodeHash")
}

func (s *stubGrantStore) AttachSession(_ context.Context, _, _ string) error {
	return errors.New("unexpected call: AttachSession")
}

func newAuthorizeRouter(users *directory.StaticDirectory, authenticatedAs string) (*gin.Engine, *stubGrantStore) {
	gin.SetMode(gin.TestMode)

	grants := &stubGrantStore{}
	service := usecase.NewAuthorizeService(users, grants, nil, 2*time.Minute, nil)
	handler := NewAuthorizeHandler(service, "https://app.test/login")

	r := gin.New()
	r.GET("/connect/authorize", func(c *gin.Context) {
		if authenticatedAs != "" {
			c.Set(middleware.UserIDKey, authenticatedAs)
		}
		c.Next()
	}, handler.Authorize)
	return r, grants
}

func TestAuthorizeUnauthenticatedRedirectsToLogin(t *testing.T) {
	r, _ := newAuthorizeRouter(directory.NewStaticDirectory(), "")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/connect/authorize?client_id=web&redirect_uri=https%3A%2F%2Fapp.test%2Fcb", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "https://app.test/login") {
		t.Fatalf("expected login redirect, got %q", location)
	}
	if !strings.Contains(location, "return_url=") {
		t.Fatalf("expected return target on login redirect, got %q", location)
	}
}

func TestAuthorizeDisabledSubjectIsRejected(t *testing.T) {
	users := directory.NewStaticDirectory(domain.Subject{
		ID:     "user-1",
		Status: domain.SubjectStatusDisabled,
	})
	r, grants := newAuthorizeRouter(users, "user-1")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/connect/authorize?client_id=web&redirect_uri=https%3A%2F%2Fapp.test%2Fcb", nil)
	r.ServeHTTP(w, req)

	// A disabled account is not a missing login; redirecting would loop.
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_grant") {
		t.Fatalf("expected invalid_grant body, got %s", w.Body.String())
	}
	if len(grants.created) != 0 {
		t.Fatal("no grant may be minted for a disabled subject")
	}
}

func TestAuthorizeVanishedSubjectIsRejected(t *testing.T) {
	r, _ := newAuthorizeRouter(directory.NewStaticDirectory(), "ghost")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/connect/authorize?client_id=web&redirect_uri=https%3A%2F%2Fapp.test%2Fcb", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_grant") {
		t.Fatalf("expected invalid_grant body, got %s", w.Body.String())
	}
}

func TestAuthorizeActiveSubjectGetsCode(t *testing.T) {
	users := directory.NewStaticDirectory(domain.Subject{
		ID:     "user-1",
		Status: domain.SubjectStatusActive,
	})
	r, grants := newAuthorizeRouter(users, "user-1")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/connect/authorize?client_id=web&redirect_uri=https%3A%2F%2Fapp.test%2Fcb&scope=openid+profile&state=xyz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "https://app.test/cb?") {
		t.Fatalf("expected redirect to client, got %q", location)
	}
	if !strings.Contains(location, "code=") || !strings.Contains(location, "state=xyz") {
		t.Fatalf("expected code and state on redirect, got %q", location)
	}
	if len(grants.created) != 1 {
		t.Fatalf("grants created = %d, want 1", len(grants.created))
	}
}
