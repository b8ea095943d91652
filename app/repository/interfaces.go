package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// WebhookLogRepository persists the audit trail of gateway deliveries.
type WebhookLogRepository interface {
	Create(ctx context.Context, log *models.WebhookLog) error
	Save(ctx context.Context, log *models.WebhookLog) error
	// FindProcessed returns the processed log of a provider transaction or
	// gorm.ErrRecordNotFound.
	FindProcessed(ctx context.Context, provider, transactionID string) (*models.WebhookLog, error)
	// FinalizeStale moves logs stuck in processing since before cutoff to failed.
	FinalizeStale(ctx context.Context, cutoff time.Time, reason string) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// TransactionRepository reads and writes payment transactions.
type TransactionRepository interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
	Create(ctx context.Context, tx *models.PaymentTransaction) error
	Save(ctx context.Context, tx *models.PaymentTransaction) error
}

// InvoiceRepository applies gateway payments to invoices.
type InvoiceRepository interface {
	// ApplyPayment locks the invoice row, adds amount and persists the
	// recomputed totals. Missing invoices return gorm.ErrRecordNotFound.
	ApplyPayment(ctx context.Context, invoiceNumber string, amount float64, now time.Time) (*models.Invoice, error)
}

// PaymentMethodRepository stores validated payment methods.
type PaymentMethodRepository interface {
	CountActivePrimary(ctx context.Context, customerID string) (int64, error)
	Create(ctx context.Context, method *models.PaymentMethod) error
}

// Repositories holds all repository instances
type Repositories struct {
	WebhookLog    WebhookLogRepository
	Transaction   TransactionRepository
	Invoice       InvoiceRepository
	PaymentMethod PaymentMethodRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WebhookLog:    NewWebhookLogRepository(db),
		Transaction:   NewTransactionRepository(db),
		Invoice:       NewInvoiceRepository(db),
		PaymentMethod: NewPaymentMethodRepository(db),
	}
}
