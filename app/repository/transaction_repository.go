package repository

import (
	"context"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a payment transaction repository backed by GORM.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	return r.first(ctx, "transaction_id = ?", transactionID)
}

// GetByReference returns the newest transaction carrying reference.
func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	return r.first(ctx, "reference = ?", reference)
}

func (r *transactionRepository) first(ctx context.Context, query string, value string) (*models.PaymentTransaction, error) {
	if value == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var tx models.PaymentTransaction
	err := r.db.WithContext(ctx).Where(query, value).Order("created_at DESC, id DESC").First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepository) Save(ctx context.Context, tx *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}
