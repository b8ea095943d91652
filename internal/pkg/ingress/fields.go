package ingress

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ManuelReschke/PayFox/app/models"
)

// Alias lists are part of the gateway wire contract. Order matters: the
// first non-empty key wins.
var (
	TransactionIDKeys       = []string{"RequestTrace", "TransactionId", "transaction_id"}
	ReferenceKeys           = []string{"Reference", "reference", "Extra1"}
	TransactionAcceptedKeys = []string{"TransactionAccepted", "transaction_accepted"}
	ResponseCodeKeys        = []string{"ResponseCode", "response_code"}
	ReasonKeys              = []string{"Reason", "reason"}
	AmountKeys              = []string{"Amount", "amount"}
	PaymentMethodKeys       = []string{"PaymentMethod", "payment_method"}
	WebhookIDKeys           = []string{"webhook_id", "WebhookId"}
	EventTypeKeys           = []string{"event_type", "EventType"}
	CurrencyKeys            = []string{"Currency", "currency"}
	CardNumberKeys          = []string{"CardNumber", "card_number", "MaskedCardNumber"}
	AccountNumberKeys       = []string{"AccountNumber", "account_number"}
	CardTypeKeys            = []string{"CardType", "card_type"}
	BankNameKeys            = []string{"BankName", "bank_name"}
)

const (
	UnknownTransactionID = models.UnknownTransactionID
	DefaultEventType     = "payment.notification"
)

// Fields are the typed values extracted from a Payload.
type Fields struct {
	TransactionID string
	Reference     string
	WebhookID     string
	EventType     string
	PaymentMethod string
	Currency      string
	CardNumber    string
	AccountNumber string
	CardType      string
	BankName      string
	Signals       Signals
}

// ExtractFields resolves every canonical field from p. headerWebhookID is
// used when the body carries no webhook id; a UUID is generated otherwise.
func ExtractFields(p Payload, headerWebhookID string) Fields {
	f := Fields{
		TransactionID: TransactionID(p),
		Reference:     Reference(p),
		EventType:     EventType(p),
		PaymentMethod: firstOrEmpty(p, PaymentMethodKeys),
		Currency:      strings.ToUpper(firstOrEmpty(p, CurrencyKeys)),
		CardNumber:    firstOrEmpty(p, CardNumberKeys),
		AccountNumber: firstOrEmpty(p, AccountNumberKeys),
		CardType:      firstOrEmpty(p, CardTypeKeys),
		BankName:      firstOrEmpty(p, BankNameKeys),
		Signals: Signals{
			TransactionAccepted: TransactionAccepted(p),
			ResponseCode:        ResponseCode(p),
			Reason:              firstOrEmpty(p, ReasonKeys),
			Amount:              Amount(p),
		},
	}

	if id, ok := p.First(WebhookIDKeys...); ok {
		f.WebhookID = id
	} else if h := strings.TrimSpace(headerWebhookID); h != "" {
		f.WebhookID = h
	} else {
		f.WebhookID = uuid.NewString()
	}
	return f
}

// TransactionID returns the provider transaction id or "unknown".
func TransactionID(p Payload) string {
	if v, ok := p.First(TransactionIDKeys...); ok {
		return v
	}
	return UnknownTransactionID
}

// Reference returns the merchant reference or "".
func Reference(p Payload) string {
	return firstOrEmpty(p, ReferenceKeys)
}

// EventType returns the event type or the generic notification type.
func EventType(p Payload) string {
	if v, ok := p.First(EventTypeKeys...); ok {
		return v
	}
	return DefaultEventType
}

// TransactionAccepted parses the tri-state accepted flag. nil means the
// gateway did not say.
func TransactionAccepted(p Payload) *bool {
	v, ok := p.First(TransactionAcceptedKeys...)
	if !ok {
		return nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "y":
		b := true
		return &b
	case "false", "0", "no", "n":
		b := false
		return &b
	default:
		return nil
	}
}

// ResponseCode parses an int-like response code.
func ResponseCode(p Payload) *int {
	v, ok := p.First(ResponseCodeKeys...)
	if !ok {
		return nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int(f)) {
		n := int(f)
		return &n
	}
	return nil
}

// Amount parses the payment amount. Thousands separators are not accepted.
func Amount(p Payload) *float64 {
	v, ok := p.First(AmountKeys...)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func firstOrEmpty(p Payload, keys []string) string {
	v, _ := p.First(keys...)
	return v
}

// AmountOrZero is a convenience for callers that treat a missing amount as 0.
func (f Fields) AmountOrZero() float64 {
	if f.Signals.Amount == nil {
		return 0
	}
	return *f.Signals.Amount
}
