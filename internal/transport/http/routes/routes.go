package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/infra/config"
	"github.com/mentora/tutoring-auth/internal/infra/security"
	"github.com/mentora/tutoring-auth/internal/infra/telemetry"
	"github.com/mentora/tutoring-auth/internal/transport/http/handlers"
	"github.com/mentora/tutoring-auth/internal/transport/http/middleware"
	"github.com/mentora/tutoring-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Authorize  *usecase.AuthorizeService
	Exchange   *usecase.TokenExchangeService
	Revocation *usecase.RevocationService
	UserInfo   *usecase.UserInfoService
	Sessions   *usecase.SessionService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Signer      *security.TokenSigner
	KeySet      security.PublicKeySet
	Revocations port.SessionRevocationCache
	Cookies     port.RefreshTokenWriter
	Metrics     *telemetry.Metrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	} else {
		r.Use(metrics.Handler())
	}

	requireAuth := middleware.RequireAuth(deps.Signer, deps.Revocations, deps.Logger)
	optionalAuth := middleware.OptionalAuth(deps.Signer, deps.Revocations, deps.Logger)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jwksHandler := handlers.NewJWKSHandler(deps.KeySet)
	r.GET("/.well-known/jwks.json", jwksHandler.Keys)

	connect := r.Group("/connect")
	{
		authorizeHandler := handlers.NewAuthorizeHandler(deps.Services.Authorize, deps.Config.App.LoginURL)
		connect.GET("/authorize", optionalAuth, authorizeHandler.Authorize)
		connect.POST("/authorize", optionalAuth, authorizeHandler.Authorize)

		tokenHandler := handlers.NewTokenHandler(deps.Services.Exchange, deps.Cookies).
			WithMetrics(deps.Metrics)
		tokenRoute := appendRateLimit(buildTokenMiddlewares(deps), tokenHandler.Exchange)
		connect.POST("/token", tokenRoute...)

		revokeHandler := handlers.NewRevokeHandler(deps.Services.Revocation)
		revokeMiddlewares := buildRevokeMiddlewares(deps)
		connect.POST("/revoke", appendRateLimit(revokeMiddlewares, revokeHandler.Revoke)...)
		// Alias kept for clients following the draft endpoint name.
		connect.POST("/revocation", appendRateLimit(revokeMiddlewares, revokeHandler.Revoke)...)

		userInfoHandler := handlers.NewUserInfoHandler(deps.Services.UserInfo)
		connect.GET("/userinfo", userInfoHandler.UserInfo)
		connect.POST("/userinfo", userInfoHandler.UserInfo)
	}

	api := r.Group("/api/auth")
	{
		sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions)
		sessionGroup := api.Group("/sessions")
		sessionGroup.Use(requireAuth)
		sessionHandler.RegisterRoutes(sessionGroup)
	}

	return r
}

func appendRateLimit(limits []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := append([]gin.HandlerFunc{}, limits...)
	return append(chain, handler)
}

func buildTokenMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.TokenMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "token_exchange_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildRevokeMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.RevokeMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "token_revoke_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
