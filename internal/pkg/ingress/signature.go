package ingress

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrSignature is returned when a configured secret does not reproduce
	// the signature sent with the delivery.
	ErrSignature = errors.New("invalid webhook signature")
	// ErrSignatureMissing is returned in strict mode when no signature header
	// was sent.
	ErrSignatureMissing = errors.New("missing webhook signature")
)

// SignatureHeaders are the accepted signature header names, in lookup order.
var SignatureHeaders = []string{"X-Netcash-Signature", "X-Signature"}

// VerifySignature checks an HMAC-SHA256 hex signature over payload.
//
// Without a secret nothing is checked and the delivery is reported as
// unverified. With a secret but no signature the delivery also proceeds
// unverified unless requireSignature is set.
func VerifySignature(payload []byte, signature, secret string, requireSignature bool) (bool, error) {
	secret = strings.TrimSpace(secret)
	sig := strings.TrimSpace(signature)
	if secret == "" {
		return false, nil
	}
	if sig == "" {
		if requireSignature {
			return false, ErrSignatureMissing
		}
		return false, nil
	}

	sig = strings.TrimPrefix(strings.ToLower(sig), "sha256=")
	decoded, err := hex.DecodeString(sig)
	if err != nil {
		return false, ErrSignature
	}
	if !hmac.Equal(Sign(payload, secret), decoded) {
		return false, ErrSignature
	}
	return true, nil
}

// Sign returns the raw HMAC-SHA256 of payload.
func Sign(payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignHex returns the hex digest the gateway is expected to send.
func SignHex(payload []byte, secret string) string {
	return hex.EncodeToString(Sign(payload, secret))
}
