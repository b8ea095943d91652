package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/config"
	"github.com/ManuelReschke/PayFox/internal/pkg/constants"
)

// rateLimitDB keeps limiter counters apart from locks and jobs (DB 0).
const rateLimitDB = 2

// Dependencies are the wired components routes need.
type Dependencies struct {
	Config   *config.Config
	Webhooks *controllers.WebhookController
	// Redis backs the rate limiter; nil falls back to in-memory counters.
	Redis *goredis.Client
}

type WebhookRouter struct {
	deps Dependencies
}

func NewWebhookRouter(deps Dependencies) *WebhookRouter {
	return &WebhookRouter{deps: deps}
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	wc := h.deps.Webhooks
	cfg := h.deps.Config

	webhook := app.Group(constants.WebhookRoute)
	webhook.Get("/", wc.HandleHealth)
	webhook.Get(constants.WebhookStatsRoute, statsAuth(cfg), wc.HandleStats)

	if cfg.Webhook.RateLimit > 0 {
		webhook.Post("/", h.rateLimiter(), wc.HandleWebhook)
	} else {
		webhook.Post("/", wc.HandleWebhook)
	}
}

// rateLimiter limits deliveries per client IP per minute. The key is c.IP(),
// which only follows X-Forwarded-For from trusted proxies (see AppConfig).
func (h WebhookRouter) rateLimiter() fiber.Handler {
	cfg := limiter.Config{
		Max:        h.deps.Config.Webhook.RateLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Warnf("[Webhook] Rate limit exceeded for %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many requests",
				"message": "Rate limit exceeded",
			})
		},
	}
	if h.deps.Redis != nil {
		host, port := cache.Endpoint(h.deps.Redis)
		cfg.Storage = redis.New(redis.Config{
			Host:     host,
			Port:     port,
			Password: h.deps.Redis.Options().Password,
			Database: rateLimitDB,
			Reset:    false,
		})
	}
	return limiter.New(cfg)
}

func statsAuth(cfg *config.Config) fiber.Handler {
	// An empty METRICS_PASSWORD locks the endpoint instead of opening it.
	return basicauth.New(basicauth.Config{
		Authorizer: func(user, pass string) bool {
			return cfg.MetricsPassword != "" && user == cfg.MetricsUser && pass == cfg.MetricsPassword
		},
	})
}
