package reconcile

import (
	"errors"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/ingress"
)

var (
	// ErrInFlight means another delivery of the same provider transaction
	// currently holds the processing lock.
	ErrInFlight = errors.New("delivery for this transaction is already being processed")
)

// Action names recorded on the WebhookLog.
const (
	ActionTransactionCreated       = "transaction_created"
	ActionTransactionUpdated       = "transaction_updated"
	ActionTransactionStatusLocked  = "transaction_status_locked"
	ActionValidationStored         = "payment_method_validation_stored"
	ActionValidationSkipped        = "payment_method_validation_skipped"
	ActionInvoiceUpdated           = "invoice_updated"
	ActionInvoiceNotFound          = "invoice_not_found"
	ActionReceiptQueued            = "receipt_queued"
	ActionOrderUpdateQueued        = "order_update_queued"
	ActionLedgerSyncQueued         = "ledger_sync_queued"
	ActionPayloadArchiveQueued     = "payload_archive_queued"
	ActionFanOutFailedSuffix       = "_enqueue_failed"
	MessageProcessed               = "Webhook processed successfully"
	MessageAlreadyProcessed        = "Webhook already processed"
	StaleProcessingReason          = "abandoned: processing timeout"
	DefaultStaleProcessingDuration = 15 * time.Minute
)

// Request is one raw delivery as received over HTTP.
type Request struct {
	Method          string
	Body            []byte
	ContentType     string
	Signature       string
	WebhookIDHeader string
	SourceIP        string
	UserAgent       string
	ReceivedAt      time.Time
}

// Result is what the HTTP layer reports back to the gateway.
type Result struct {
	Message       string
	TransactionID string
	Status        string
	WebhookID     string
	Duplicate     bool
	Actions       []string
}

// Delivery is the request context threaded through the pipeline stages.
// Stages never mutate it; they return a new value instead.
type Delivery struct {
	Provider          string
	Request           Request
	Payload           ingress.Payload
	Fields            ingress.Fields
	Status            string
	SignatureVerified bool
	Transaction       *models.PaymentTransaction
	Actions           []string
}

// WithAction returns a copy of d with action appended.
func (d Delivery) WithAction(action string) Delivery {
	actions := make([]string, len(d.Actions), len(d.Actions)+1)
	copy(actions, d.Actions)
	d.Actions = append(actions, action)
	return d
}

// WithTransaction returns a copy of d bound to tx.
func (d Delivery) WithTransaction(tx *models.PaymentTransaction) Delivery {
	d.Transaction = tx
	return d
}

// HasTransactionID reports whether the gateway identified the transaction.
func (d Delivery) HasTransactionID() bool {
	return d.Fields.TransactionID != "" && d.Fields.TransactionID != models.UnknownTransactionID
}

// ProcessedKey is the idempotency key of the delivery.
func (d Delivery) ProcessedKey() string {
	return models.ProcessedKeyFor(d.Provider, d.Fields.TransactionID)
}

// Amount is the webhook amount, falling back to the bound transaction.
func (d Delivery) Amount() float64 {
	if d.Fields.Signals.Amount != nil {
		return *d.Fields.Signals.Amount
	}
	if d.Transaction != nil {
		return d.Transaction.Amount
	}
	return 0
}

// Reference prefers the webhook reference over the stored one.
func (d Delivery) Reference() string {
	if d.Fields.Reference != "" {
		return d.Fields.Reference
	}
	if d.Transaction != nil {
		return d.Transaction.Reference
	}
	return ""
}

// Currency prefers the webhook currency over the stored one.
func (d Delivery) Currency() string {
	if d.Fields.Currency != "" {
		return d.Fields.Currency
	}
	if d.Transaction != nil && d.Transaction.Currency != "" {
		return d.Transaction.Currency
	}
	return "ZAR"
}

func (d Delivery) result(message string) Result {
	return Result{
		Message:       message,
		TransactionID: d.Fields.TransactionID,
		Status:        d.Status,
		WebhookID:     d.Fields.WebhookID,
		Actions:       d.Actions,
	}
}
