package config

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

// devJWTSecret is the fallback signing key used when JWT_SECRET is unset.
// Only acceptable for local development.
const devJWTSecret = "dispatch-dev-secret-do-not-use-in-prod"

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// ProjectRef scopes the session storage key, mirroring the
	// sb-<ref>-auth-token convention of the hosted auth provider.
	ProjectRef string `env:"AUTH_PROJECT_REF, default=local"`

	// Webhook signing secrets. Empty means the corresponding receiver
	// accepts payloads unverified (development fallback).
	AuthWebhookSecret    string `env:"AUTH_WEBHOOK_SECRET"`
	BillingWebhookSecret string `env:"BILLING_WEBHOOK_SECRET"`

	EventWorkers int `env:"EVENT_WORKERS, default=8"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=dispatch"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
// A missing JWT_SECRET is tolerated with a development fallback so local
// setups work out of the box, but never silently in production.
func Load(ctx context.Context, log zerolog.Logger) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, using development fallback key")
		cfg.JWTSecret = devJWTSecret
	}
	return &cfg, nil
}
