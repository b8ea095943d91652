package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/config"
	"github.com/ManuelReschke/PayFox/internal/pkg/reconcile"
)

type okProcessor struct{}

func (okProcessor) Process(context.Context, reconcile.Request) (reconcile.Result, error) {
	return reconcile.Result{Message: reconcile.MessageProcessed, Status: "completed"}, nil
}
func (okProcessor) SignatureVerification() bool { return false }
func (okProcessor) LogStats(context.Context) (map[string]int64, error) {
	return map[string]int64{"processed": 1}, nil
}

func newTestApp(rateLimit int, password string, trustedProxies ...string) *fiber.App {
	cfg := &config.Config{
		Webhook:         config.WebhookConfig{Provider: "netcash", RateLimit: rateLimit},
		MetricsUser:     "admin",
		MetricsPassword: password,
		TrustedProxies:  trustedProxies,
	}
	app := fiber.New(AppConfig(cfg, 1<<20))
	NewWebhookRouter(Dependencies{
		Config:   cfg,
		Webhooks: controllers.NewWebhookController(okProcessor{}, nil),
	}).InstallRouter(app)
	return app
}

func post(t *testing.T, app *fiber.App, ip string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", ip)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestWebhookRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	app := newTestApp(2, "")

	assert.Equal(t, fiber.StatusOK, post(t, app, "1.1.1.1"))
	assert.Equal(t, fiber.StatusOK, post(t, app, "2.2.2.2"))
	assert.Equal(t, fiber.StatusTooManyRequests, post(t, app, "3.3.3.3"))
	assert.Equal(t, fiber.StatusTooManyRequests, post(t, app, "4.4.4.4"))
}

func TestWebhookRateLimitPerClientBehindTrustedProxy(t *testing.T) {
	// app.Test connections come from 0.0.0.0
	app := newTestApp(2, "", "0.0.0.0")

	assert.Equal(t, fiber.StatusOK, post(t, app, "1.1.1.1"))
	assert.Equal(t, fiber.StatusOK, post(t, app, "1.1.1.1"))
	assert.Equal(t, fiber.StatusTooManyRequests, post(t, app, "1.1.1.1"))

	assert.Equal(t, fiber.StatusOK, post(t, app, "2.2.2.2"))
}

func TestWebhookWithoutRateLimit(t *testing.T) {
	app := newTestApp(0, "")
	for i := 0; i < 5; i++ {
		assert.Equal(t, fiber.StatusOK, post(t, app, "1.1.1.1"))
	}
}

func TestStatsRequiresBasicAuth(t *testing.T) {
	app := newTestApp(0, "secret")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/webhook/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/webhook/stats", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestStatsLockedWithoutPassword(t *testing.T) {
	app := newTestApp(0, "")

	req := httptest.NewRequest(http.MethodGet, "/webhook/stats", nil)
	req.SetBasicAuth("admin", "")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHealthIsPublic(t *testing.T) {
	app := newTestApp(0, "")
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/webhook", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
