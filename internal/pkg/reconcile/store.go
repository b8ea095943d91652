package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/ingress"
)

// upsertTransaction applies the resolved status to the matched transaction,
// or inserts one built from the webhook when nothing matched.
//
// A completed transaction never moves back to another status; such updates
// are recorded as locked and otherwise ignored.
func (e *Engine) upsertTransaction(ctx context.Context, d Delivery, tx *models.PaymentTransaction) (Delivery, error) {
	now := e.now()
	response := providerResponse(d.Payload)

	if tx == nil {
		created := &models.PaymentTransaction{
			TransactionID:    d.Fields.TransactionID,
			Reference:        d.Fields.Reference,
			Provider:         d.Provider,
			Amount:           d.Fields.AmountOrZero(),
			Currency:         d.Currency(),
			PaymentMethod:    d.Fields.PaymentMethod,
			Metadata:         models.JSONMap{"source": "webhook", "webhook_id": d.Fields.WebhookID},
			ProviderResponse: response,
			InitiatedAt:      now,
		}
		if !d.HasTransactionID() {
			created.TransactionID = ""
		}
		created.SetStatus(d.Status, now)

		if err := e.transactions.Create(ctx, created); err != nil {
			return d, fmt.Errorf("create transaction: %w", err)
		}
		log.Warnf("[Reconcile] No transaction matched %s / %q, created %d from webhook", d.Fields.TransactionID, d.Fields.Reference, created.ID)
		return d.WithTransaction(created).WithAction(ActionTransactionCreated), nil
	}

	if tx.Status == models.PaymentStatusCompleted && d.Status != models.PaymentStatusCompleted {
		log.Warnf("[Reconcile] Ignoring %s for completed transaction %s", d.Status, tx.TransactionID)
		return d.WithTransaction(tx).WithAction(ActionTransactionStatusLocked), nil
	}

	tx.SetStatus(d.Status, now)
	if d.Fields.PaymentMethod != "" {
		tx.PaymentMethod = d.Fields.PaymentMethod
	}
	if tx.TransactionID == "" && d.HasTransactionID() {
		tx.TransactionID = d.Fields.TransactionID
	}
	tx.ProviderResponse = response

	if err := e.transactions.Save(ctx, tx); err != nil {
		return d, fmt.Errorf("update transaction %d: %w", tx.ID, err)
	}
	return d.WithTransaction(tx).WithAction(ActionTransactionUpdated), nil
}

// providerResponse stores the sanitized payload; raw card data never lands
// on the transaction row.
func providerResponse(p ingress.Payload) models.RawJSON {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(ingress.SanitizeForLog(p))
	if err != nil {
		return nil
	}
	return models.RawJSON(data)
}
