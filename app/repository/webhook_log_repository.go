package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

type webhookLogRepository struct {
	db *gorm.DB
}

// NewWebhookLogRepository creates a webhook log repository backed by GORM.
func NewWebhookLogRepository(db *gorm.DB) WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

func (r *webhookLogRepository) Create(ctx context.Context, log *models.WebhookLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *webhookLogRepository) Save(ctx context.Context, log *models.WebhookLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

func (r *webhookLogRepository) FindProcessed(ctx context.Context, provider, transactionID string) (*models.WebhookLog, error) {
	var log models.WebhookLog
	err := r.db.WithContext(ctx).
		Where("provider = ? AND transaction_id = ? AND status = ?", provider, transactionID, models.WebhookStatusProcessed).
		Order("id ASC").
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *webhookLogRepository) FinalizeStale(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	now := time.Now()
	tx := r.db.WithContext(ctx).
		Model(&models.WebhookLog{}).
		Where("status = ? AND processing_started_at < ?", models.WebhookStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":                  models.WebhookStatusFailed,
			"error_message":           reason,
			"processing_completed_at": &now,
		})
	return tx.RowsAffected, tx.Error
}

func (r *webhookLogRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.WebhookLog{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
