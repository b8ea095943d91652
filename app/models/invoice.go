package models

import (
	"math"
	"time"
)

const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPartial = "partial"
	InvoiceStatusPaid    = "paid"
)

// InvoicePrefix identifies invoice references round-tripped by the gateway.
const InvoicePrefix = "INV-"

// Invoice is owned by the billing side of the product. Webhooks only ever
// add to AmountPaid.
type Invoice struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	InvoiceNumber string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"invoice_number"`
	CustomerID    string     `gorm:"type:varchar(64);index" json:"customer_id"`
	CustomerEmail string     `gorm:"type:varchar(200)" json:"customer_email,omitempty"`
	TotalAmount   float64    `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	AmountPaid    float64    `gorm:"type:decimal(12,2);not null;default:0" json:"amount_paid"`
	AmountDue     float64    `gorm:"type:decimal(12,2);not null;default:0" json:"amount_due"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaidAt        *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ApplyPayment adds amount to the invoice and recomputes due and status.
// Non-positive amounts leave the paid total unchanged.
func (i *Invoice) ApplyPayment(amount float64, now time.Time) {
	if amount > 0 {
		i.AmountPaid = roundCents(i.AmountPaid + amount)
	}
	i.AmountDue = roundCents(math.Max(0, i.TotalAmount-i.AmountPaid))
	if i.AmountDue <= 0 {
		i.Status = InvoiceStatusPaid
		if i.PaidAt == nil {
			paid := now
			i.PaidAt = &paid
		}
		return
	}
	i.Status = InvoiceStatusPartial
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
