package ingress

import "strings"

var sensitiveKeys = map[string]struct{}{
	"cardnumber":       {},
	"card_number":      {},
	"maskedcardnumber": {},
	"accountnumber":    {},
	"account_number":   {},
	"cvv":              {},
	"cvc":              {},
}

// SanitizeForLog returns a copy of p with card and account numbers reduced
// to their last four digits and card security codes removed.
func SanitizeForLog(p Payload) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		lk := strings.ToLower(k)
		if _, ok := sensitiveKeys[lk]; !ok {
			out[k] = v
			continue
		}
		if lk == "cvv" || lk == "cvc" {
			out[k] = "***"
			continue
		}
		out[k] = MaskDigits(v)
	}
	return out
}

// MaskDigits keeps the last four digits of v.
func MaskDigits(v string) string {
	d := LastFour(v)
	if d == "" {
		return "****"
	}
	return "****" + d
}

// LastFour returns the last four digits found in v, or "" when v holds
// fewer than four digits.
func LastFour(v string) string {
	digits := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		if v[i] >= '0' && v[i] <= '9' {
			digits = append(digits, v[i])
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string(digits[len(digits)-4:])
}
