package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates an invoice repository backed by GORM.
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// ApplyPayment runs the read-compute-write under SELECT ... FOR UPDATE so
// concurrent payments against one invoice serialize on the row.
func (r *invoiceRepository) ApplyPayment(ctx context.Context, invoiceNumber string, amount float64, now time.Time) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("invoice_number = ?", invoiceNumber).
			First(&inv).Error; err != nil {
			return err
		}

		inv.ApplyPayment(amount, now)
		return tx.Model(&inv).Updates(map[string]interface{}{
			"amount_paid": inv.AmountPaid,
			"amount_due":  inv.AmountDue,
			"status":      inv.Status,
			"paid_at":     inv.PaidAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
