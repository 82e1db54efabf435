// Package signature authenticates the two completion paths: the donor's
// browser callback and the gateway's server-to-server webhook. The two paths
// use distinct shared secrets so a leaked client-facing secret cannot forge
// webhook events.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier holds the two shared secrets. A mismatch is a normal outcome, not
// an error: both methods return a plain bool.
type Verifier struct {
	callbackSecret []byte
	webhookSecret  []byte
}

func NewVerifier(callbackSecret, webhookSecret string) *Verifier {
	return &Verifier{
		callbackSecret: []byte(callbackSecret),
		webhookSecret:  []byte(webhookSecret),
	}
}

// VerifyClientCallback checks the signature the gateway handed to the donor's
// browser: hex(HMAC-SHA256(callbackSecret, orderID + "|" + paymentID)).
func (v *Verifier) VerifyClientCallback(orderID, paymentID, sig string) bool {
	if orderID == "" || paymentID == "" || sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, v.callbackSecret)
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

// VerifyWebhookPayload checks the webhook signature over the exact raw body
// bytes. Callers must not parse or trust the payload until this returns true.
func (v *Verifier) VerifyWebhookPayload(rawBody []byte, sig string) bool {
	if len(rawBody) == 0 || sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, v.webhookSecret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

// SignClientCallback produces the client-callback signature. Exposed for the
// gateway simulator and tests.
func (v *Verifier) SignClientCallback(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.callbackSecret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignWebhookPayload produces the webhook signature over raw bytes. Exposed
// for the gateway simulator and tests.
func (v *Verifier) SignWebhookPayload(rawBody []byte) string {
	mac := hmac.New(sha256.New, v.webhookSecret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
