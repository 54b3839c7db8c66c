package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Tokens    TokenSettings     `mapstructure:"tokens"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Directory DirectorySettings `mapstructure:"directory"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Issuer   string `mapstructure:"issuer"`
	LoginURL string `mapstructure:"login_url"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	Migrate           bool          `mapstructure:"migrate"`
}

// DSN renders the postgres connection string shared by the pool and the
// migration runner.
func (s PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User,
		s.Password,
		s.Host,
		s.Port,
		s.Database,
		s.SSLMode,
	)
}

// RedisSettings configures Redis connection and TLS.
type RedisSettings struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	DB                      int           `mapstructure:"db"`
	Password                string        `mapstructure:"password"`
	TLSEnabled              bool          `mapstructure:"tls_enabled"`
	SessionRevocationPrefix string        `mapstructure:"session_revocation_prefix"`
	SessionRevocationTTL    time.Duration `mapstructure:"session_revocation_ttl"`
	RateLimitPrefix         string        `mapstructure:"rate_limit_prefix"`
}

// KafkaSettings configures the Kafka producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// TokenSettings configures token lifetimes and key material.
type TokenSettings struct {
	KeyDirectory     string        `mapstructure:"key_directory"`
	SigningKeyID     string        `mapstructure:"signing_key_id"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
	IdentityTokenTTL time.Duration `mapstructure:"identity_token_ttl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl"`
	AuthCodeTTL      time.Duration `mapstructure:"auth_code_ttl"`
}

// RateLimitSettings configures rate limiting on the token endpoint.
type RateLimitSettings struct {
	WindowDuration    time.Duration `mapstructure:"window_duration"`
	TokenMaxAttempts  int           `mapstructure:"token_max_attempts"`
	RevokeMaxAttempts int           `mapstructure:"revoke_max_attempts"`
}

// DirectorySettings configures the identity-service lookup client. An
// empty BaseURL selects the in-memory development directory.
type DirectorySettings struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.issuer",
		"app.login_url",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.migrate",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.session_revocation_prefix",
		"redis.session_revocation_ttl",
		"redis.rate_limit_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"tokens.key_directory",
		"tokens.signing_key_id",
		"tokens.access_token_ttl",
		"tokens.identity_token_ttl",
		"tokens.refresh_token_ttl",
		"tokens.auth_code_ttl",
		"rate_limit.window_duration",
		"rate_limit.token_max_attempts",
		"rate_limit.revoke_max_attempts",
		"directory.base_url",
		"directory.api_key",
		"directory.timeout",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tutoring-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.issuer", "https://auth.mentora.local")
	v.SetDefault("app.login_url", "/login")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "auth")
	v.SetDefault("postgres.password", "auth_password")
	v.SetDefault("postgres.database", "auth")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.session_revocation_prefix", "auth:sess:revoked")
	v.SetDefault("redis.session_revocation_ttl", "720h")
	v.SetDefault("redis.rate_limit_prefix", "auth:rate-limit")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "auth")
	v.SetDefault("kafka.async", true)

	v.SetDefault("tokens.key_directory", "./secrets")
	v.SetDefault("tokens.signing_key_id", "v1")
	v.SetDefault("tokens.access_token_ttl", "15m")
	v.SetDefault("tokens.identity_token_ttl", "15m")
	v.SetDefault("tokens.refresh_token_ttl", "720h")
	v.SetDefault("tokens.auth_code_ttl", "2m")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.token_max_attempts", 30)
	v.SetDefault("rate_limit.revoke_max_attempts", 10)

	v.SetDefault("directory.base_url", "")
	v.SetDefault("directory.api_key", "")
	v.SetDefault("directory.timeout", "5s")

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "tutoring-auth")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTH_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
