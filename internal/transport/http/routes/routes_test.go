package routes_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/infra/config"
	"github.com/mentora/tutoring-auth/internal/infra/security"
	httproutes "github.com/mentora/tutoring-auth/internal/transport/http/routes"
)

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: logger,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestReadinessWithoutChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: logger,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/readyz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestJWKSEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	keys, err := security.NewEphemeralKeyProvider("test-kid")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	r := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: logger,
		KeySet: keys,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc == "" {
		t.Fatal("expected Cache-Control header on jwks response")
	}
	if !strings.Contains(w.Body.String(), "test-kid") {
		t.Fatalf("expected jwks body to carry the kid, got %s", w.Body.String())
	}
}

func TestSessionRoutesRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	keys, err := security.NewEphemeralKeyProvider("test-kid")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := security.NewTokenSigner(keys, "test-kid", "https://auth.test", "tutoring_api", 0, 0)

	r := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: logger,
		Signer: signer,
		KeySet: keys,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/auth/sessions", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}
