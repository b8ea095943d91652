package reconcile

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// guard reports whether the provider transaction of d has already been
// processed. Deliveries without a transaction id are never duplicates.
func (e *Engine) guard(ctx context.Context, d Delivery) (bool, error) {
	if !d.HasTransactionID() {
		return false, nil
	}
	_, err := e.logs.FindProcessed(ctx, d.Provider, d.Fields.TransactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return true, nil
}
