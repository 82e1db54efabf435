package service

import "errors"

// Error taxonomy for the settlement core. Handlers map these onto HTTP codes
// and stable error code strings; idempotent no-ops are results, not errors.
var (
	// ErrValidation covers bad caller input (missing fields, non-positive
	// amounts).
	ErrValidation = errors.New("validation failed")

	// ErrTargetUnavailable means the campaign or product cannot accept the
	// transaction right now (closed, expired, out of stock, below minimum).
	ErrTargetUnavailable = errors.New("target unavailable")

	// ErrTransactionNotFound means the gateway referenced an order with no
	// matching transaction. A data-integrity problem, never fabricated over.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidRefundState means a refund was requested against a
	// transaction that is not in the completed state.
	ErrInvalidRefundState = errors.New("transaction not refundable in its current state")

	// ErrVerificationFailed means a client callback signature mismatch.
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrWebhookAuth means a webhook payload signature mismatch.
	ErrWebhookAuth = errors.New("webhook signature verification failed")
)
