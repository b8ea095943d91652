package models

import "time"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// TransactionTypePaymentMethodValidation marks a transaction created to
// validate and store a customer's payment method.
const TransactionTypePaymentMethodValidation = "payment_method_validation"

// PaymentTransaction is a payment attempt as seen by the gateway. Initiating
// flows usually create it up front; webhooks only move its status.
type PaymentTransaction struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	TransactionID    string     `gorm:"type:varchar(191);not null;default:'';index" json:"transaction_id"`
	Reference        string     `gorm:"type:varchar(191);not null;default:'';index" json:"reference"`
	Provider         string     `gorm:"type:varchar(32);not null;index" json:"provider"`
	Amount           float64    `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Currency         string     `gorm:"type:varchar(3);not null;default:'ZAR'" json:"currency"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod    string     `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	CustomerID       string     `gorm:"type:varchar(64);index" json:"customer_id,omitempty"`
	Metadata         JSONMap    `gorm:"type:text" json:"metadata"`
	ProviderResponse RawJSON    `gorm:"type:text" json:"provider_response,omitempty"`
	InitiatedAt      time.Time  `gorm:"type:timestamp;not null" json:"initiated_at"`
	CompletedAt      *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Type returns the metadata discriminator, if any.
func (t *PaymentTransaction) Type() string {
	return t.Metadata.String("type")
}

// IsPaymentMethodValidation reports whether this transaction validates a
// payment method instead of paying for something.
func (t *PaymentTransaction) IsPaymentMethodValidation() bool {
	return t.Type() == TransactionTypePaymentMethodValidation
}

// SetStatus applies status and keeps CompletedAt set iff status is completed.
// An existing completion time survives repeated completed updates.
func (t *PaymentTransaction) SetStatus(status string, now time.Time) {
	t.Status = status
	if status != PaymentStatusCompleted {
		t.CompletedAt = nil
		return
	}
	if t.CompletedAt == nil {
		completed := now
		t.CompletedAt = &completed
	}
}
