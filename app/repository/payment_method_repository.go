package repository

import (
	"context"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

type paymentMethodRepository struct {
	db *gorm.DB
}

// NewPaymentMethodRepository creates a payment method repository backed by GORM.
func NewPaymentMethodRepository(db *gorm.DB) PaymentMethodRepository {
	return &paymentMethodRepository{db: db}
}

func (r *paymentMethodRepository) CountActivePrimary(ctx context.Context, customerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentMethod{}).
		Where("customer_id = ? AND is_active = ? AND is_primary = ?", customerID, true, true).
		Count(&count).Error
	return count, err
}

func (r *paymentMethodRepository) Create(ctx context.Context, method *models.PaymentMethod) error {
	if err := method.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(method).Error
}
