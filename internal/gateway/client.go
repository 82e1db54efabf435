package gateway

import (
	"context"
	"fmt"
)

// Order is the gateway-side order created before the donor is sent to the
// payment UI.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment is the gateway-side payment entity reported on capture.
type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Method  string `json:"method"`
	Status  string `json:"status"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
	// ErrorDescription is populated on payment.failed events.
	ErrorDescription string `json:"error_description,omitempty"`
}

// Refund is the gateway-side refund entity.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Gateway payment statuses we act on.
const (
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
)

// Error wraps an upstream gateway failure. Callers may retry; the local
// state is never left half-updated on a gateway error.
type Error struct {
	Op     string
	Status int
	Desc   string
	Err    error
}

func (e *Error) Error() string {
	if e.Desc != "" {
		return fmt.Sprintf("gateway %s: %s", e.Op, e.Desc)
	}
	return fmt.Sprintf("gateway %s failed", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

// Client defines the interface for payment gateway implementations.
type Client interface {
	// Name returns the gateway identifier.
	Name() string

	// CreateOrder registers an order for amount minor units and returns the
	// gateway order id the payment UI needs.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)

	// FetchPayment fetches a payment entity by id.
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)

	// FetchOrderPayments lists the payments made against an order.
	FetchOrderPayments(ctx context.Context, orderID string) ([]Payment, error)

	// CreateRefund issues a (possibly partial) refund against a payment.
	CreateRefund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error)

	// FetchRefund fetches a refund entity by id.
	FetchRefund(ctx context.Context, refundID string) (*Refund, error)
}
