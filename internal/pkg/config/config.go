package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

// Config is the typed application configuration assembled from the
// environment. Validation runs once at startup.
type Config struct {
	AppHost string `validate:"required"`
	AppPort string `validate:"required,numeric"`
	AppEnv  string `validate:"oneof=dev test prod"`

	DBDriver   string `validate:"oneof=mysql postgres"`
	DBHost     string `validate:"required"`
	DBPort     string `validate:"required,numeric"`
	DBUser     string
	DBPassword string
	DBName     string `validate:"required"`

	CacheHost     string `validate:"required"`
	CachePort     string `validate:"required,numeric"`
	CachePassword string

	Webhook WebhookConfig
	Ledger  CollaboratorConfig
	Orders  CollaboratorConfig

	JobQueueWorkers  int    `validate:"min=1,max=64"`
	PaymentMethodKey string `validate:"omitempty,hexadecimal,len=64"`

	MetricsUser     string
	MetricsPassword string

	// TrustedProxies may set X-Forwarded-For. Empty means the peer address
	// is the client.
	TrustedProxies []string `validate:"dive,ip|cidr"`
}

// WebhookConfig controls the inbound gateway endpoint.
type WebhookConfig struct {
	Provider         string `validate:"required"`
	Secret           string
	RequireSignature bool
	RateLimit        int `validate:"min=0"`
	LockTTL          time.Duration
}

// CollaboratorConfig describes an outbound HTTP collaborator.
type CollaboratorConfig struct {
	BaseURL string `validate:"omitempty,url"`
	APIKey  string
	Timeout time.Duration
}

// SignatureEnabled reports whether inbound bodies are HMAC-verified.
func (w WebhookConfig) SignatureEnabled() bool {
	return w.Secret != ""
}

// Load reads the configuration from env and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppHost: env.GetEnv("APP_HOST", "localhost"),
		AppPort: env.GetEnv("APP_PORT", "4000"),
		AppEnv:  env.GetEnv("APP_ENV", "prod"),

		DBDriver:   env.GetEnv("DB_DRIVER", "mysql"),
		DBHost:     env.GetEnv("DB_HOST", "127.0.0.1"),
		DBPort:     env.GetEnv("DB_PORT", "3306"),
		DBUser:     env.GetEnv("DB_USER", ""),
		DBPassword: env.GetEnv("DB_PASSWORD", ""),
		DBName:     env.GetEnv("DB_NAME", "payfox_db"),

		CacheHost:     env.GetEnv("CACHE_HOST", "localhost"),
		CachePort:     env.GetEnv("CACHE_PORT", "6379"),
		CachePassword: env.GetEnv("CACHE_PASSWORD", ""),

		Webhook: WebhookConfig{
			Provider:         env.GetEnv("WEBHOOK_PROVIDER", "netcash"),
			Secret:           env.GetEnv("WEBHOOK_SECRET", ""),
			RequireSignature: env.GetEnvBool("WEBHOOK_REQUIRE_SIGNATURE", false),
			RateLimit:        env.GetEnvInt("WEBHOOK_RATE_LIMIT", 100),
			LockTTL:          time.Duration(env.GetEnvInt("WEBHOOK_LOCK_TTL_SECONDS", 30)) * time.Second,
		},
		Ledger: CollaboratorConfig{
			BaseURL: env.GetEnv("LEDGER_BASE_URL", ""),
			APIKey:  env.GetEnv("LEDGER_API_KEY", ""),
			Timeout: time.Duration(env.GetEnvInt("LEDGER_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Orders: CollaboratorConfig{
			BaseURL: env.GetEnv("ORDERS_BASE_URL", ""),
			APIKey:  env.GetEnv("ORDERS_API_KEY", ""),
			Timeout: time.Duration(env.GetEnvInt("ORDERS_TIMEOUT_SECONDS", 10)) * time.Second,
		},

		JobQueueWorkers:  env.GetEnvInt("JOBQUEUE_WORKERS", 5),
		PaymentMethodKey: env.GetEnv("PAYMENT_METHOD_KEY", ""),

		MetricsUser:     env.GetEnv("METRICS_USER", "admin"),
		MetricsPassword: env.GetEnv("METRICS_PASSWORD", ""),

		TrustedProxies: splitList(env.GetEnv("TRUSTED_PROXIES", "")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks struct tags on the whole tree.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
