package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/docs"
	"github.com/ManuelReschke/PayFox/internal/pkg/archive"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/config"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/PayFox/internal/pkg/ledger"
	"github.com/ManuelReschke/PayFox/internal/pkg/lock"
	"github.com/ManuelReschke/PayFox/internal/pkg/mail"
	"github.com/ManuelReschke/PayFox/internal/pkg/orders"
	"github.com/ManuelReschke/PayFox/internal/pkg/reconcile"
	"github.com/ManuelReschke/PayFox/internal/pkg/router"
	"github.com/ManuelReschke/PayFox/internal/pkg/secretbox"
)

// maxWebhookBody caps inbound deliveries; gateway payloads are a few KB.
const maxWebhookBody = 1 << 20

func main() {
	app, manager := NewApplication()

	go func() {
		if err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("[PayFox] Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("[PayFox] HTTP shutdown: %v", err)
	}
	manager.Stop()
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	if env.IsDev() {
		log.SetLevel(log.LevelDebug)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, err := docs.Load(ctx); err != nil {
		log.Fatal(err)
	}

	db, err := database.SetupDatabase(cfg)
	if err != nil {
		log.Fatal(err)
	}
	repos := repository.NewFactory(db).GetRepositories()
	redisClient := cache.SetupCache(cfg)

	// background fan-out collaborators; unconfigured ones stay nil and their
	// jobs complete as skipped
	var handlers jobqueue.Handlers
	if c := ledger.NewClient(cfg.Ledger); c.Enabled() {
		handlers.Ledger = c
	}
	if c := orders.NewClient(cfg.Orders); c.Enabled() {
		handlers.Orders = c
	}
	if m := mail.NewSMTPMailerFromEnv(); m.Enabled() {
		handlers.Receipts = m
	}

	archiveCfg, err := archive.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if archiveCfg.IsEnabled() {
		client, err := archive.NewClient(ctx, archiveCfg)
		if err != nil {
			log.Fatal(err)
		}
		handlers.Archive = client
	}

	queue := jobqueue.NewQueue(redisClient, cfg.JobQueueWorkers, handlers)

	opts := reconcile.Options{
		Provider:         cfg.Webhook.Provider,
		Secret:           cfg.Webhook.Secret,
		RequireSignature: cfg.Webhook.RequireSignature,
		LockTTL:          cfg.Webhook.LockTTL,
		ArchivePayloads:  archiveCfg.IsEnabled(),
		Repositories:     repos,
		Locker:           lock.NewRedisLocker(redisClient),
		FanOut:           queue,
	}
	if cfg.PaymentMethodKey != "" {
		box, err := secretbox.NewFromHex(cfg.PaymentMethodKey)
		if err != nil {
			log.Fatal(err)
		}
		opts.Sealer = box
	} else {
		log.Warn("[PayFox] PAYMENT_METHOD_KEY not set; payment method details are stored masked and unencrypted")
	}
	engine := reconcile.NewEngine(opts)
	if !engine.SignatureVerification() {
		log.Warn("[PayFox] WEBHOOK_SECRET not set; signatures are not verified")
	}

	manager := jobqueue.NewManager(queue, engine, 0)
	manager.Start()

	// init fiber app
	app := fiber.New(router.AppConfig(cfg, maxWebhookBody))

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Config:   cfg,
		Webhooks: controllers.NewWebhookController(engine, queue),
		Redis:    redisClient,
	})

	return app, manager
}
