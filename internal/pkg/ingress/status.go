package ingress

import (
	"strings"

	"github.com/ManuelReschke/PayFox/app/models"
)

// Signals are the overlapping status hints a gateway may send.
type Signals struct {
	TransactionAccepted *bool
	ResponseCode        *int
	Reason              string
	Amount              *float64
}

// ResolveStatus maps gateway signals to a canonical payment status. The
// first applicable rule wins:
//
//  1. accepted=true                       -> completed
//  2. accepted=false                      -> cancelled if reason mentions "cancel", else failed
//  3. response code 0 / 1 / 2             -> completed / failed / cancelled
//  4. reason equals "success"             -> completed
//  5. otherwise                           -> pending
func ResolveStatus(s Signals) string {
	if s.TransactionAccepted != nil {
		if *s.TransactionAccepted {
			return models.PaymentStatusCompleted
		}
		if strings.Contains(strings.ToLower(s.Reason), "cancel") {
			return models.PaymentStatusCancelled
		}
		return models.PaymentStatusFailed
	}

	if s.ResponseCode != nil {
		switch *s.ResponseCode {
		case 0:
			return models.PaymentStatusCompleted
		case 1:
			return models.PaymentStatusFailed
		case 2:
			return models.PaymentStatusCancelled
		}
	}

	if strings.EqualFold(strings.TrimSpace(s.Reason), "success") {
		return models.PaymentStatusCompleted
	}
	return models.PaymentStatusPending
}
