package models

import "time"

const (
	WebhookStatusProcessing = "processing"
	WebhookStatusProcessed  = "processed"
	WebhookStatusFailed     = "failed"
)

// WebhookLog is the audit record of one inbound gateway delivery. It moves
// from processing to exactly one of processed or failed and is never deleted.
//
// ProcessedKey is only populated on the processed transition; its unique
// index allows a single processed row per provider transaction.
type WebhookLog struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	Provider              string     `gorm:"type:varchar(32);not null;index:idx_webhook_logs_provider_tx,priority:1" json:"provider"`
	WebhookID             string     `gorm:"type:varchar(64);not null;index" json:"webhook_id"`
	EventType             string     `gorm:"type:varchar(100);not null" json:"event_type"`
	HTTPMethod            string     `gorm:"type:varchar(10);not null" json:"http_method"`
	RawBody               string     `gorm:"type:text;not null" json:"raw_body"`
	ParsedBody            JSONMap    `gorm:"type:text" json:"parsed_body"`
	Signature             string     `gorm:"type:varchar(255)" json:"signature,omitempty"`
	SignatureVerified     bool       `gorm:"default:false" json:"signature_verified"`
	Status                string     `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionID         string     `gorm:"type:varchar(191);not null;default:'';index:idx_webhook_logs_provider_tx,priority:2" json:"transaction_id"`
	Reference             string     `gorm:"type:varchar(191);not null;default:'';index" json:"reference"`
	ErrorMessage          string     `gorm:"type:text" json:"error_message,omitempty"`
	SourceIP              string     `gorm:"type:varchar(64)" json:"source_ip"`
	UserAgent             string     `gorm:"type:varchar(255)" json:"user_agent"`
	ReceivedAt            time.Time  `gorm:"type:timestamp;not null" json:"received_at"`
	ProcessingStartedAt   time.Time  `gorm:"type:timestamp;not null" json:"processing_started_at"`
	ProcessingCompletedAt *time.Time `gorm:"type:timestamp;default:null" json:"processing_completed_at,omitempty"`
	DurationMs            *int64     `json:"duration_ms,omitempty"`
	ActionsTaken          StringList `gorm:"type:text" json:"actions_taken"`
	ProcessedKey          *string    `gorm:"type:varchar(255);uniqueIndex:ux_webhook_logs_processed_key" json:"-"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// UnknownTransactionID is recorded when a delivery carries no transaction
// id. Such deliveries are never deduplicated.
const UnknownTransactionID = "unknown"

// ProcessedKeyFor builds the idempotency key of a provider transaction.
func ProcessedKeyFor(provider, transactionID string) string {
	return provider + ":" + transactionID
}

// IsTerminal reports whether the log reached processed or failed.
func (l *WebhookLog) IsTerminal() bool {
	return l.Status == WebhookStatusProcessed || l.Status == WebhookStatusFailed
}

// MarkProcessed moves the log to processed and records timing and actions.
func (l *WebhookLog) MarkProcessed(actions []string, now time.Time) {
	l.Status = WebhookStatusProcessed
	l.ProcessedKey = nil
	if l.TransactionID != "" && l.TransactionID != UnknownTransactionID {
		key := ProcessedKeyFor(l.Provider, l.TransactionID)
		l.ProcessedKey = &key
	}
	l.ErrorMessage = ""
	l.ActionsTaken = append(StringList{}, actions...)
	l.finish(now)
}

// MarkFailed moves the log to failed with the given reason.
func (l *WebhookLog) MarkFailed(reason string, actions []string, now time.Time) {
	l.Status = WebhookStatusFailed
	l.ProcessedKey = nil
	l.ErrorMessage = reason
	l.ActionsTaken = append(StringList{}, actions...)
	l.finish(now)
}

func (l *WebhookLog) finish(now time.Time) {
	completed := now
	l.ProcessingCompletedAt = &completed
	d := now.Sub(l.ProcessingStartedAt).Milliseconds()
	if d < 0 {
		d = 0
	}
	l.DurationMs = &d
}
