package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/ingress"
	"github.com/ManuelReschke/PayFox/internal/pkg/jobqueue"
)

// Branch is the reconciliation path of a completed payment.
type Branch string

const (
	BranchValidation Branch = "payment_method_validation"
	BranchInvoice    Branch = "invoice"
	BranchOrder      Branch = "order"
)

// SelectBranch picks exactly one branch. Validation metadata takes
// precedence over the reference prefix.
func SelectBranch(tx *models.PaymentTransaction, reference string) Branch {
	if tx != nil && tx.IsPaymentMethodValidation() {
		return BranchValidation
	}
	if strings.HasPrefix(reference, models.InvoicePrefix) {
		return BranchInvoice
	}
	return BranchOrder
}

// dispatch runs the branch of a completed, matched payment and queues the
// ledger sync for money-moving branches.
func (e *Engine) dispatch(ctx context.Context, d Delivery) (Delivery, error) {
	var err error
	switch SelectBranch(d.Transaction, d.Reference()) {
	case BranchValidation:
		return e.storePaymentMethod(ctx, d)
	case BranchInvoice:
		d, err = e.settleInvoice(ctx, d)
	default:
		d = e.enqueue(ctx, d, jobqueue.JobTypeOrderUpdate, jobqueue.OrderUpdateJobPayload{
			Reference:     d.Reference(),
			TransactionID: d.Transaction.TransactionID,
			Amount:        d.Amount(),
		}.ToMap(), ActionOrderUpdateQueued)
	}
	if err != nil {
		return d, err
	}

	return e.enqueue(ctx, d, jobqueue.JobTypeLedgerSync, jobqueue.LedgerSyncJobPayload{
		TransactionID: d.Transaction.TransactionID,
		Reference:     d.Reference(),
		Provider:      d.Provider,
		Amount:        d.Amount(),
		Currency:      d.Currency(),
		Status:        d.Status,
	}.ToMap(), ActionLedgerSyncQueued), nil
}

func (e *Engine) settleInvoice(ctx context.Context, d Delivery) (Delivery, error) {
	invoiceNumber := d.Reference()
	amount := d.Amount()

	invoice, err := e.invoices.ApplyPayment(ctx, invoiceNumber, amount, e.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Reconcile] Invoice %s not found for transaction %s", invoiceNumber, d.Transaction.TransactionID)
		return d.WithAction(ActionInvoiceNotFound), nil
	}
	if err != nil {
		return d, fmt.Errorf("apply payment to invoice %s: %w", invoiceNumber, err)
	}

	log.Infof("[Reconcile] Invoice %s: paid %.2f, due %.2f, status %s", invoice.InvoiceNumber, invoice.AmountPaid, invoice.AmountDue, invoice.Status)
	d = d.WithAction(ActionInvoiceUpdated)

	if invoice.CustomerEmail == "" {
		return d, nil
	}
	return e.enqueue(ctx, d, jobqueue.JobTypeInvoiceReceipt, jobqueue.InvoiceReceiptJobPayload{
		InvoiceNumber:    invoice.InvoiceNumber,
		CustomerID:       invoice.CustomerID,
		Email:            invoice.CustomerEmail,
		Amount:           amount,
		PaymentMethod:    d.Transaction.PaymentMethod,
		Reference:        d.Reference(),
		RemainingBalance: invoice.AmountDue,
	}.ToMap(), ActionReceiptQueued), nil
}

// storedDetails is what gets sealed into PaymentMethod.EncryptedDetails.
type storedDetails struct {
	MethodType    string `json:"method_type"`
	LastFour      string `json:"last_four,omitempty"`
	CardType      string `json:"card_type,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	MaskedNumber  string `json:"masked_number,omitempty"`
	TransactionID string `json:"transaction_id"`
}

func (e *Engine) storePaymentMethod(ctx context.Context, d Delivery) (Delivery, error) {
	tx := d.Transaction
	customerID := tx.CustomerID
	if customerID == "" {
		customerID = tx.Metadata.String("customer_id")
	}
	if customerID == "" {
		log.Warnf("[Reconcile] Validation transaction %s has no customer, payment method not stored", tx.TransactionID)
		return d.WithAction(ActionValidationSkipped), nil
	}

	methodType := methodTypeFor(d.Fields)
	number := d.Fields.CardNumber
	if methodType == models.PaymentMethodTypeEFT {
		number = d.Fields.AccountNumber
	}
	lastFour := ingress.LastFour(number)

	primaries, err := e.paymentMethods.CountActivePrimary(ctx, customerID)
	if err != nil {
		return d, fmt.Errorf("count primary payment methods: %w", err)
	}

	details, err := e.sealDetails(storedDetails{
		MethodType:    methodType,
		LastFour:      lastFour,
		CardType:      d.Fields.CardType,
		BankName:      d.Fields.BankName,
		MaskedNumber:  ingress.MaskDigits(number),
		TransactionID: tx.TransactionID,
	})
	if err != nil {
		return d, err
	}

	method := &models.PaymentMethod{
		CustomerID:       customerID,
		MethodType:       methodType,
		DisplayName:      displayName(methodType, d.Fields, lastFour),
		LastFour:         lastFour,
		IsPrimary:        primaries == 0,
		IsActive:         true,
		TokenStatus:      models.TokenStatusActive,
		EncryptedDetails: details,
		SourceTxID:       tx.TransactionID,
	}
	if err := e.paymentMethods.Create(ctx, method); err != nil {
		return d, fmt.Errorf("store payment method: %w", err)
	}

	log.Infof("[Reconcile] Stored %s payment method for customer %s (primary=%t)", methodType, customerID, method.IsPrimary)
	return d.WithAction(ActionValidationStored), nil
}

func (e *Engine) sealDetails(details storedDetails) (string, error) {
	data, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("encode payment method details: %w", err)
	}
	if e.sealer == nil {
		return string(data), nil
	}
	sealed, err := e.sealer.Seal(data)
	if err != nil {
		return "", fmt.Errorf("seal payment method details: %w", err)
	}
	return sealed, nil
}

// methodTypeFor classifies the validated instrument. Bank debits are
// recognised by the payment method name or by an account number sent
// without a card number.
func methodTypeFor(f ingress.Fields) string {
	pm := strings.ToLower(f.PaymentMethod)
	for _, hint := range []string{"eft", "bank", "debit"} {
		if strings.Contains(pm, hint) {
			return models.PaymentMethodTypeEFT
		}
	}
	if f.CardNumber == "" && f.AccountNumber != "" {
		return models.PaymentMethodTypeEFT
	}
	return models.PaymentMethodTypeCard
}

func displayName(methodType string, f ingress.Fields, lastFour string) string {
	label := "Card"
	if f.CardType != "" {
		label = f.CardType
	}
	if methodType == models.PaymentMethodTypeEFT {
		label = "Bank account"
		if f.BankName != "" {
			label = f.BankName
		}
	}
	if lastFour == "" {
		return label
	}
	return label + " ending in " + lastFour
}
