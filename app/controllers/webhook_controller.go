package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/internal/pkg/ingress"
	"github.com/ManuelReschke/PayFox/internal/pkg/metrics"
	"github.com/ManuelReschke/PayFox/internal/pkg/reconcile"
)

// WebhookProcessor is the reconciliation pipeline behind POST /webhook.
type WebhookProcessor interface {
	Process(ctx context.Context, req reconcile.Request) (reconcile.Result, error)
	SignatureVerification() bool
	LogStats(ctx context.Context) (map[string]int64, error)
}

// QueueSizer reports job queue backlog for the stats endpoint.
type QueueSizer interface {
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
}

type WebhookController struct {
	processor WebhookProcessor
	queue     QueueSizer
}

func NewWebhookController(processor WebhookProcessor, queue QueueSizer) *WebhookController {
	return &WebhookController{processor: processor, queue: queue}
}

// HandleWebhook accepts one gateway delivery.
// Response: { success, message, transaction_id, status, processing_time_ms }
func (wc *WebhookController) HandleWebhook(c *fiber.Ctx) error {
	startedAt := time.Now()

	req := reconcile.Request{
		Method:          c.Method(),
		Body:            append([]byte(nil), c.Body()...),
		ContentType:     c.Get(fiber.HeaderContentType),
		Signature:       signatureHeader(c),
		WebhookIDHeader: c.Get("X-Webhook-Id"),
		SourceIP:        ClientIP(c),
		UserAgent:       c.Get(fiber.HeaderUserAgent),
		ReceivedAt:      startedAt,
	}

	res, err := wc.processor.Process(c.UserContext(), req)
	elapsed := time.Since(startedAt).Milliseconds()
	if err != nil {
		status, outcome, label := classifyWebhookError(err)
		metrics.ObserveWebhook(outcome, startedAt)
		message := err.Error()
		if status == fiber.StatusInternalServerError {
			// internal detail stays in the log
			fiberlog.Errorf("[Webhook] Delivery from %s failed: %v", req.SourceIP, err)
			message = label
		} else {
			fiberlog.Warnf("[Webhook] Delivery from %s rejected (%d): %v", req.SourceIP, status, err)
		}
		return c.Status(status).JSON(fiber.Map{
			"success":            false,
			"error":              label,
			"message":            message,
			"processing_time_ms": elapsed,
		})
	}

	outcome := "processed"
	if res.Duplicate {
		outcome = "duplicate"
	}
	metrics.ObserveWebhook(outcome, startedAt)
	fiberlog.Infof("[Webhook] %s %s in %dms (status=%s)", res.WebhookID, outcome, elapsed, res.Status)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":            true,
		"message":            res.Message,
		"transaction_id":     res.TransactionID,
		"status":             res.Status,
		"processing_time_ms": elapsed,
	})
}

// HandleHealth is the gateway facing liveness probe.
func (wc *WebhookController) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":                 "active",
		"signature_verification": wc.processor.SignatureVerification(),
	})
}

// HandleStats returns webhook log counts per status and job queue backlog.
func (wc *WebhookController) HandleStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	logs, err := wc.processor.LogStats(ctx)
	if err != nil {
		fiberlog.Errorf("[Webhook] Stats query failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats unavailable"})
	}

	out := fiber.Map{"webhook_logs": logs}
	if wc.queue != nil {
		pending, perr := wc.queue.GetQueueSize(ctx)
		processing, qerr := wc.queue.GetProcessingSize(ctx)
		if perr == nil && qerr == nil {
			out["job_queue"] = fiber.Map{"pending": pending, "processing": processing}
		}
	}
	return c.JSON(out)
}

func classifyWebhookError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ingress.ErrParse):
		return fiber.StatusBadRequest, "parse_error", "Invalid payload"
	case errors.Is(err, ingress.ErrSignature), errors.Is(err, ingress.ErrSignatureMissing):
		return fiber.StatusUnauthorized, "signature_rejected", "Invalid signature"
	case errors.Is(err, reconcile.ErrInFlight):
		return fiber.StatusConflict, "in_flight", "Delivery already in progress"
	default:
		return fiber.StatusInternalServerError, "error", "Internal server error"
	}
}

func signatureHeader(c *fiber.Ctx) string {
	for _, h := range ingress.SignatureHeaders {
		if v := c.Get(h); v != "" {
			return v
		}
	}
	return ""
}

// ClientIP resolves the caller address behind proxies: first
// X-Forwarded-For entry, CF-Connecting-IP, X-Real-IP, then the peer.
// Forwarding headers from an untrusted peer are ignored.
func ClientIP(c *fiber.Ctx) string {
	if !c.IsProxyTrusted() {
		return c.IP()
	}
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if ip := c.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip := c.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return c.IP()
}
