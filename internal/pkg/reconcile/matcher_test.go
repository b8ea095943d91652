package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/app/models"
)

func TestCleanReference(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		applies bool
	}{
		{"CT-PM-VAL-abc123-1700000000-1700000000", "PM-VAL-abc123-1700000000", true},
		{"CT-ORDER-001-1700000000", "ORDER-001-1700000000", true},
		{"CT-A-A", "A", true},
		{"CT-", "", false},
		{"ORDER-001", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CleanReference(tt.in)
			assert.Equal(t, tt.applies, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchTransactionOrder(t *testing.T) {
	store := &memTransactions{}
	byID := store.add(&models.PaymentTransaction{TransactionID: "T1", Reference: "R-other"})
	byRefAsID := store.add(&models.PaymentTransaction{TransactionID: "CT-ORDER-7-1700", Reference: "x"})
	byRef := store.add(&models.PaymentTransaction{Reference: "ORD-55"})
	byCleaned := store.add(&models.PaymentTransaction{Reference: "PM-VAL-z-9"})

	tests := []struct {
		name          string
		transactionID string
		reference     string
		want          *models.PaymentTransaction
		strategy      string
	}{
		{"transaction id wins over reference", "T1", "ORD-55", byID, "transaction_id"},
		{"reference holds our transaction id", "NC-1", "CT-ORDER-7-1700", byRefAsID, "reference_as_transaction_id"},
		{"plain reference", "unknown", "ORD-55", byRef, "reference"},
		{"cleaned reference", "NC-2", "CT-PM-VAL-z-9-9", byCleaned, "cleaned_reference"},
		{"nothing matches", "NC-3", "ORD-404", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy, err := MatchTransaction(context.Background(), store, Strategies, tt.transactionID, tt.reference)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

type brokenFinder struct{}

func (brokenFinder) GetByTransactionID(context.Context, string) (*models.PaymentTransaction, error) {
	return nil, errors.New("db down")
}

func (brokenFinder) GetByReference(context.Context, string) (*models.PaymentTransaction, error) {
	return nil, errors.New("db down")
}

func TestMatchTransactionPropagatesStoreErrors(t *testing.T) {
	_, _, err := MatchTransaction(context.Background(), brokenFinder{}, Strategies, "T1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match by transaction_id")
}

func TestSelectBranch(t *testing.T) {
	validation := &models.PaymentTransaction{Metadata: models.JSONMap{"type": models.TransactionTypePaymentMethodValidation}}
	plain := &models.PaymentTransaction{}

	assert.Equal(t, BranchValidation, SelectBranch(validation, "INV-1"))
	assert.Equal(t, BranchInvoice, SelectBranch(plain, "INV-1"))
	assert.Equal(t, BranchOrder, SelectBranch(plain, "ORD-1"))
	assert.Equal(t, BranchOrder, SelectBranch(nil, ""))
}

func TestDeliveryWithActionDoesNotAlias(t *testing.T) {
	base := Delivery{}.WithAction("a")
	left := base.WithAction("b")
	right := base.WithAction("c")

	assert.Equal(t, []string{"a"}, base.Actions)
	assert.Equal(t, []string{"a", "b"}, left.Actions)
	assert.Equal(t, []string{"a", "c"}, right.Actions)
}
