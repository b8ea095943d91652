package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/internal/pkg/archive"
	"github.com/ManuelReschke/PayFox/internal/pkg/ledger"
	"github.com/ManuelReschke/PayFox/internal/pkg/mail"
	"github.com/ManuelReschke/PayFox/internal/pkg/orders"
)

const handlerTimeout = 30 * time.Second

// LedgerSyncer pushes settled transactions to the ledger.
type LedgerSyncer interface {
	SyncTransaction(ctx context.Context, entry ledger.Entry) (*ledger.Result, error)
}

// OrderUpdater marks orders as paid.
type OrderUpdater interface {
	MarkPaid(ctx context.Context, update orders.PaymentUpdate) (*orders.Result, error)
}

// ReceiptSender mails invoice receipts.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, r mail.Receipt) (*mail.Result, error)
}

// PayloadArchiver stores raw deliveries.
type PayloadArchiver interface {
	Archive(ctx context.Context, d archive.Delivery) (*archive.UploadResult, error)
}

// Handlers are the collaborators behind each job type. A nil collaborator
// means the integration is not configured; its jobs complete as skipped.
type Handlers struct {
	Ledger   LedgerSyncer
	Orders   OrderUpdater
	Receipts ReceiptSender
	Archive  PayloadArchiver
}

func (q *Queue) runHandler(ctx context.Context, job *Job) error {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	switch job.Type {
	case JobTypeLedgerSync:
		return q.processLedgerSyncJob(ctx, job)
	case JobTypeOrderUpdate:
		return q.processOrderUpdateJob(ctx, job)
	case JobTypeInvoiceReceipt:
		return q.processInvoiceReceiptJob(ctx, job)
	case JobTypeWebhookArchive:
		return q.processWebhookArchiveJob(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (q *Queue) processLedgerSyncJob(ctx context.Context, job *Job) error {
	payload, err := LedgerSyncJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid ledger sync payload: %w", err)
	}
	if q.handlers.Ledger == nil {
		log.Warnf("[JobQueue] Ledger not configured, skipping sync of %s", payload.TransactionID)
		return nil
	}

	entry := ledger.Entry{
		TransactionID: payload.TransactionID,
		Reference:     payload.Reference,
		Provider:      payload.Provider,
		Amount:        payload.Amount,
		Currency:      payload.Currency,
		Status:        payload.Status,
	}
	if _, err := q.handlers.Ledger.SyncTransaction(ctx, entry); err != nil {
		return fmt.Errorf("ledger sync %s: %w", entry, err)
	}
	return nil
}

func (q *Queue) processOrderUpdateJob(ctx context.Context, job *Job) error {
	payload, err := OrderUpdateJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid order update payload: %w", err)
	}
	if q.handlers.Orders == nil {
		log.Warnf("[JobQueue] Order service not configured, skipping update of %s", payload.Reference)
		return nil
	}

	res, err := q.handlers.Orders.MarkPaid(ctx, orders.PaymentUpdate{
		Reference:     payload.Reference,
		TransactionID: payload.TransactionID,
		Amount:        payload.Amount,
	})
	if err != nil {
		return fmt.Errorf("order update %s: %w", payload.Reference, err)
	}
	log.Infof("[JobQueue] Order %s updated to %s", res.OrderNumber, res.NewStatus)
	return nil
}

func (q *Queue) processInvoiceReceiptJob(ctx context.Context, job *Job) error {
	payload, err := InvoiceReceiptJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid receipt payload: %w", err)
	}
	if q.handlers.Receipts == nil {
		log.Warnf("[JobQueue] Mailer not configured, skipping receipt for %s", payload.InvoiceNumber)
		return nil
	}

	res, err := q.handlers.Receipts.SendReceipt(ctx, mail.Receipt{
		InvoiceNumber:    payload.InvoiceNumber,
		CustomerID:       payload.CustomerID,
		Email:            payload.Email,
		Amount:           payload.Amount,
		PaymentMethod:    payload.PaymentMethod,
		Reference:        payload.Reference,
		RemainingBalance: payload.RemainingBalance,
	})
	if err != nil {
		return fmt.Errorf("receipt for %s: %w", payload.InvoiceNumber, err)
	}
	log.Infof("[JobQueue] Receipt for %s sent (%s)", payload.InvoiceNumber, res.MessageID)
	return nil
}

func (q *Queue) processWebhookArchiveJob(ctx context.Context, job *Job) error {
	payload, err := WebhookArchiveJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid archive payload: %w", err)
	}
	if q.handlers.Archive == nil {
		return nil
	}

	_, err = q.handlers.Archive.Archive(ctx, archive.Delivery{
		WebhookID:   payload.WebhookID,
		Provider:    payload.Provider,
		ContentType: payload.ContentType,
		ReceivedAt:  payload.ReceivedAt,
		RawBody:     payload.RawBody,
	})
	return err
}
