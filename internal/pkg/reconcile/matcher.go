package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
)

// InternalReferencePrefix is prepended by our checkout flows to references
// handed to the gateway.
const InternalReferencePrefix = "CT-"

// Column selects which stored column a strategy looks up.
type Column int

const (
	ColumnTransactionID Column = iota
	ColumnReference
)

// TransactionFinder is the read side of the transaction store.
type TransactionFinder interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
}

// Strategy derives a lookup key from the webhook identifiers. ok=false
// means the strategy does not apply to this delivery.
type Strategy struct {
	Name   string
	Column Column
	Key    func(transactionID, reference string) (key string, ok bool)
}

// Strategies is the matching order. The first strategy that finds a row
// wins.
var Strategies = []Strategy{
	{
		Name:   "transaction_id",
		Column: ColumnTransactionID,
		Key: func(transactionID, _ string) (string, bool) {
			return transactionID, transactionID != "" && transactionID != models.UnknownTransactionID
		},
	},
	{
		Name:   "reference_as_transaction_id",
		Column: ColumnTransactionID,
		Key: func(_, reference string) (string, bool) {
			return reference, reference != ""
		},
	},
	{
		Name:   "reference",
		Column: ColumnReference,
		Key: func(_, reference string) (string, bool) {
			return reference, reference != ""
		},
	},
	{
		Name:   "cleaned_reference",
		Column: ColumnReference,
		Key: func(_, reference string) (string, bool) {
			return CleanReference(reference)
		},
	},
}

// CleanReference strips the internal prefix and a duplicated trailing
// segment: CT-PM-VAL-abc-1700-1700 becomes PM-VAL-abc-1700. ok is false
// when the reference does not carry the prefix.
func CleanReference(reference string) (string, bool) {
	if !strings.HasPrefix(reference, InternalReferencePrefix) {
		return "", false
	}
	cleaned := strings.TrimPrefix(reference, InternalReferencePrefix)

	parts := strings.Split(cleaned, "-")
	if n := len(parts); n >= 2 && parts[n-1] != "" && parts[n-1] == parts[n-2] {
		cleaned = strings.Join(parts[:n-1], "-")
	}
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// MatchTransaction runs strategies in order and returns the first hit along
// with the strategy name. A nil transaction and nil error mean no match.
func MatchTransaction(ctx context.Context, finder TransactionFinder, strategies []Strategy, transactionID, reference string) (*models.PaymentTransaction, string, error) {
	for _, s := range strategies {
		key, ok := s.Key(transactionID, reference)
		if !ok {
			continue
		}

		var (
			tx  *models.PaymentTransaction
			err error
		)
		switch s.Column {
		case ColumnTransactionID:
			tx, err = finder.GetByTransactionID(ctx, key)
		case ColumnReference:
			tx, err = finder.GetByReference(ctx, key)
		default:
			return nil, "", fmt.Errorf("strategy %s: unknown column %d", s.Name, s.Column)
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("match by %s: %w", s.Name, err)
		}
		if tx != nil {
			return tx, s.Name, nil
		}
	}
	return nil, "", nil
}
