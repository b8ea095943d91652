package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := env.Env
	env.Env = values
	t.Cleanup(func() { env.Env = prev })
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, map[string]string{})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "netcash", cfg.Webhook.Provider)
	assert.Equal(t, 100, cfg.Webhook.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.Webhook.LockTTL)
	assert.False(t, cfg.Webhook.SignatureEnabled())
	assert.False(t, cfg.Webhook.RequireSignature)
	assert.Equal(t, 5, cfg.JobQueueWorkers)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadTrustedProxies(t *testing.T) {
	withEnv(t, map[string]string{"TRUSTED_PROXIES": " 10.0.0.1, 172.16.0.0/12 ,,"})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.TrustedProxies)
}

func TestLoadWebhookSecret(t *testing.T) {
	withEnv(t, map[string]string{
		"WEBHOOK_SECRET":            "s3cr3t",
		"WEBHOOK_REQUIRE_SIGNATURE": "yes",
		"DB_DRIVER":                 "postgres",
		"DB_PORT":                   "5432",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Webhook.SignatureEnabled())
	assert.True(t, cfg.Webhook.RequireSignature)
	assert.Equal(t, "postgres", cfg.DBDriver)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{name: "unknown driver", values: map[string]string{"DB_DRIVER": "sqlite"}},
		{name: "bad ledger url", values: map[string]string{"LEDGER_BASE_URL": "not a url"}},
		{name: "short payment method key", values: map[string]string{"PAYMENT_METHOD_KEY": "abcd"}},
		{name: "zero workers", values: map[string]string{"JOBQUEUE_WORKERS": "0"}},
		{name: "bad trusted proxy", values: map[string]string{"TRUSTED_PROXIES": "10.0.0.1,proxy.internal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.values)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
