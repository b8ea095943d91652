package reconcile

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/ingress"
)

// Audit drives the WebhookLog state machine: processing, then exactly one
// of processed or failed.
type Audit struct {
	logs repository.WebhookLogRepository
	now  func() time.Time
}

// NewAudit creates an Audit writing to logs.
func NewAudit(logs repository.WebhookLogRepository, now func() time.Time) *Audit {
	if now == nil {
		now = time.Now
	}
	return &Audit{logs: logs, now: now}
}

// Begin persists a processing log for d.
func (a *Audit) Begin(ctx context.Context, d Delivery) (*models.WebhookLog, error) {
	entry := a.entryFor(d)
	if err := a.logs.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Complete moves entry to processed.
func (a *Audit) Complete(ctx context.Context, entry *models.WebhookLog, actions []string) error {
	entry.MarkProcessed(actions, a.now())
	return a.logs.Save(ctx, entry)
}

// Fail moves entry to failed. Write errors are logged and swallowed.
func (a *Audit) Fail(ctx context.Context, entry *models.WebhookLog, reason string, actions []string) {
	if entry == nil {
		return
	}
	entry.MarkFailed(reason, actions, a.now())
	if err := a.logs.Save(ctx, entry); err != nil {
		log.Errorf("[Audit] Failed to mark webhook %s as failed: %v", entry.WebhookID, err)
	}
}

// Reject records a delivery that never reached processing, e.g. an
// unparseable body or a bad signature. Write errors are logged and
// swallowed.
func (a *Audit) Reject(ctx context.Context, d Delivery, reason string) {
	entry := a.entryFor(d)
	entry.MarkFailed(reason, d.Actions, a.now())
	if err := a.logs.Create(ctx, entry); err != nil {
		log.Errorf("[Audit] Failed to record rejected webhook %s: %v", entry.WebhookID, err)
	}
}

func (a *Audit) entryFor(d Delivery) *models.WebhookLog {
	received := d.Request.ReceivedAt
	if received.IsZero() {
		received = a.now()
	}

	var parsed models.JSONMap
	if d.Payload != nil {
		parsed = models.JSONMap(ingress.SanitizeForLog(d.Payload).ToMap())
	}

	return &models.WebhookLog{
		Provider:            d.Provider,
		WebhookID:           d.Fields.WebhookID,
		EventType:           d.Fields.EventType,
		HTTPMethod:          d.Request.Method,
		RawBody:             string(d.Request.Body),
		ParsedBody:          parsed,
		Signature:           d.Request.Signature,
		SignatureVerified:   d.SignatureVerified,
		Status:              models.WebhookStatusProcessing,
		TransactionID:       d.Fields.TransactionID,
		Reference:           d.Fields.Reference,
		SourceIP:            d.Request.SourceIP,
		UserAgent:           d.Request.UserAgent,
		ReceivedAt:          received,
		ProcessingStartedAt: a.now(),
		ActionsTaken:        models.StringList{},
	}
}
