package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/internal/pkg/config"
)

// Router registers one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter mounts the webhook endpoints first, then the operational
// routes (metrics, API docs).
func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewWebhookRouter(deps), NewOpsRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

// AppConfig is the fiber server configuration. X-Forwarded-For is only
// honored when the peer is one of the configured trusted proxies, so c.IP()
// cannot be spoofed by the caller.
func AppConfig(cfg *config.Config, bodyLimit int) fiber.Config {
	return fiber.Config{
		BodyLimit:               bodyLimit,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.TrustedProxies,
		EnableIPValidation:      true,
	}
}
