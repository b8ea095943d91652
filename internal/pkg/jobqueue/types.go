package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeLedgerSync     JobType = "ledger_sync"
	JobTypeOrderUpdate    JobType = "order_update"
	JobTypeInvoiceReceipt JobType = "invoice_receipt"
	JobTypeWebhookArchive JobType = "webhook_archive"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// LedgerSyncJobPayload pushes a settled transaction to the accounting ledger.
type LedgerSyncJobPayload struct {
	TransactionID string  `json:"transaction_id"`
	Reference     string  `json:"reference"`
	Provider      string  `json:"provider"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
}

// ToMap converts the payload to a map for storage
func (p LedgerSyncJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"transaction_id": p.TransactionID,
		"reference":      p.Reference,
		"provider":       p.Provider,
		"amount":         p.Amount,
		"currency":       p.Currency,
		"status":         p.Status,
	}
}

func LedgerSyncJobPayloadFromMap(data map[string]interface{}) (*LedgerSyncJobPayload, error) {
	var payload LedgerSyncJobPayload
	return &payload, fromMap(data, &payload)
}

// OrderUpdateJobPayload moves the order behind a reference to paid.
type OrderUpdateJobPayload struct {
	Reference     string  `json:"reference"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
}

func (p OrderUpdateJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"reference":      p.Reference,
		"transaction_id": p.TransactionID,
		"amount":         p.Amount,
	}
}

func OrderUpdateJobPayloadFromMap(data map[string]interface{}) (*OrderUpdateJobPayload, error) {
	var payload OrderUpdateJobPayload
	return &payload, fromMap(data, &payload)
}

// InvoiceReceiptJobPayload contains everything the receipt mail renders.
type InvoiceReceiptJobPayload struct {
	InvoiceNumber    string  `json:"invoice_number"`
	CustomerID       string  `json:"customer_id"`
	Email            string  `json:"email"`
	Amount           float64 `json:"amount"`
	PaymentMethod    string  `json:"payment_method"`
	Reference        string  `json:"reference"`
	RemainingBalance float64 `json:"remaining_balance"`
}

func (p InvoiceReceiptJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"invoice_number":    p.InvoiceNumber,
		"customer_id":       p.CustomerID,
		"email":             p.Email,
		"amount":            p.Amount,
		"payment_method":    p.PaymentMethod,
		"reference":         p.Reference,
		"remaining_balance": p.RemainingBalance,
	}
}

func InvoiceReceiptJobPayloadFromMap(data map[string]interface{}) (*InvoiceReceiptJobPayload, error) {
	var payload InvoiceReceiptJobPayload
	return &payload, fromMap(data, &payload)
}

// WebhookArchiveJobPayload carries a raw delivery body to cold storage.
type WebhookArchiveJobPayload struct {
	WebhookID   string    `json:"webhook_id"`
	Provider    string    `json:"provider"`
	ContentType string    `json:"content_type"`
	ReceivedAt  time.Time `json:"received_at"`
	RawBody     string    `json:"raw_body"`
}

func (p WebhookArchiveJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"webhook_id":   p.WebhookID,
		"provider":     p.Provider,
		"content_type": p.ContentType,
		"received_at":  p.ReceivedAt.UTC().Format(time.RFC3339Nano),
		"raw_body":     p.RawBody,
	}
}

func WebhookArchiveJobPayloadFromMap(data map[string]interface{}) (*WebhookArchiveJobPayload, error) {
	var payload WebhookArchiveJobPayload
	return &payload, fromMap(data, &payload)
}

// fromMap round-trips through JSON, the same way payloads come back out of
// Redis.
func fromMap(data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
