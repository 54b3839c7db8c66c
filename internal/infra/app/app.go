package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/infra/config"
	"github.com/mentora/tutoring-auth/internal/infra/database"
	"github.com/mentora/tutoring-auth/internal/infra/device"
	"github.com/mentora/tutoring-auth/internal/infra/directory"
	kafkainfra "github.com/mentora/tutoring-auth/internal/infra/kafka"
	"github.com/mentora/tutoring-auth/internal/infra/logger"
	redisinfra "github.com/mentora/tutoring-auth/internal/infra/redis"
	"github.com/mentora/tutoring-auth/internal/infra/security"
	"github.com/mentora/tutoring-auth/internal/infra/telemetry"
	postgresrepo "github.com/mentora/tutoring-auth/internal/repository/postgres"
	redisrepo "github.com/mentora/tutoring-auth/internal/repository/redis"
	"github.com/mentora/tutoring-auth/internal/transport/http/handlers"
	"github.com/mentora/tutoring-auth/internal/transport/http/middleware"
	"github.com/mentora/tutoring-auth/internal/transport/http/routes"
	"github.com/mentora/tutoring-auth/internal/usecase"
)

// keyMaterial joins signing and JWKS publication, which every provider in
// the security package supports.
type keyMaterial interface {
	security.KeyProvider
	security.PublicKeySet
}

type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	tracing *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracing, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	metrics := telemetry.NewMetrics()

	if cfg.Postgres.Migrate {
		if err := database.Migrate(cfg.Postgres.DSN(), log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	keys, err := loadKeyMaterial(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init key material: %w", err)
	}

	signer := security.NewTokenSigner(
		keys,
		cfg.Tokens.SigningKeyID,
		cfg.App.Issuer,
		"tutoring_api",
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.IdentityTokenTTL,
	)

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	revocationCache := redisrepo.NewSessionRevocationCache(redisClient.Client(), cfg.Redis.SessionRevocationPrefix)
	revocationTTL := cfg.Redis.SessionRevocationTTL
	if revocationTTL <= 0 {
		revocationTTL = cfg.Tokens.RefreshTokenTTL
	}

	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), cfg.Redis.RateLimitPrefix)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}
	eventPublisher = telemetry.InstrumentEvents(eventPublisher, metrics)

	users := buildDirectory(cfg, log)
	resolver := device.NewResolver()

	sessionService := usecase.NewSessionService(repos.Sessions, repos.Tokens, eventPublisher, cfg.Tokens.RefreshTokenTTL, log).
		WithRevocationCache(revocationCache, revocationTTL)
	authorizeService := usecase.NewAuthorizeService(users, repos.Grants, resolver, cfg.Tokens.AuthCodeTTL, log)
	exchangeService := usecase.NewTokenExchangeService(
		users,
		repos.Tokens,
		repos.Grants,
		repos.Sessions,
		sessionService,
		resolver,
		eventPublisher,
		signer,
		cfg.Tokens.RefreshTokenTTL,
		cfg.Tokens.AccessTokenTTL,
		log,
	)
	revocationService := usecase.NewRevocationService(repos.Tokens, sessionService, log)
	userInfoService := usecase.NewUserInfoService(users, signer, log)

	cookieWriter := handlers.NewCookieRefreshTokenWriter("", cfg.App.Env == "production")

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Signer:      signer,
		KeySet:      keys,
		Revocations: revocationCache,
		Cookies:     cookieWriter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Authorize:  authorizeService,
			Exchange:   exchangeService,
			Revocation: revocationService,
			UserInfo:   userInfoService,
			Sessions:   sessionService,
		},
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		tracing: tracing,
	}, nil
}

// loadKeyMaterial prefers the mounted key directory and falls back to an
// in-memory key outside production.
func loadKeyMaterial(cfg *config.AppConfig, log *zap.Logger) (keyMaterial, error) {
	provider, err := security.NewFileKeyProvider(cfg.Tokens.KeyDirectory)
	if err == nil {
		return provider, nil
	}

	if cfg.App.Env == "production" {
		return nil, err
	}

	log.Warn("key directory unavailable, generating ephemeral signing key",
		zap.String("key_directory", cfg.Tokens.KeyDirectory),
		zap.Error(err),
	)
	return security.NewEphemeralKeyProvider(cfg.Tokens.SigningKeyID)
}

// buildDirectory selects the identity-service client or, when no base URL
// is configured, an empty in-memory directory for local development.
func buildDirectory(cfg *config.AppConfig, log *zap.Logger) port.UserDirectory {
	if cfg.Directory.BaseURL != "" {
		return directory.NewHTTPDirectory(cfg.Directory.BaseURL, cfg.Directory.APIKey, cfg.Directory.Timeout, log)
	}

	log.Warn("directory base url not configured, using in-memory directory")
	return directory.NewStaticDirectory()
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracing != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracing.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting authorization server",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
