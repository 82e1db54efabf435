package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"daanseva/internal/pkg/httpclient"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayClient implements the Client interface for Razorpay.
type RazorpayClient struct {
	keyID   string
	baseURL string
	client  *httpclient.Client
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		keyID:   keyID,
		baseURL: razorpayBaseURL,
		client: httpclient.New().
			WithTimeout(30 * time.Second).
			WithBasicAuth(keyID, keySecret),
	}
}

// WithBaseURL overrides the API base URL (used against test doubles).
func (r *RazorpayClient) WithBaseURL(url string) *RazorpayClient {
	r.baseURL = url
	return r
}

func (r *RazorpayClient) Name() string {
	return "razorpay"
}

func (r *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	body := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	resp, err := r.client.Post(ctx, r.baseURL+"/orders", body)
	if err != nil {
		return nil, r.wrapErr("create order", err)
	}

	var order Order
	if err := json.Unmarshal(resp, &order); err != nil {
		return nil, &Error{Op: "create order", Desc: "unparseable response", Err: err}
	}
	if order.ID == "" {
		return nil, &Error{Op: "create order", Desc: "no order id returned"}
	}
	return &order, nil
}

func (r *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	resp, err := r.client.Get(ctx, r.baseURL+"/payments/"+paymentID)
	if err != nil {
		return nil, r.wrapErr("fetch payment", err)
	}

	var payment Payment
	if err := json.Unmarshal(resp, &payment); err != nil {
		return nil, &Error{Op: "fetch payment", Desc: "unparseable response", Err: err}
	}
	return &payment, nil
}

func (r *RazorpayClient) FetchOrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	resp, err := r.client.Get(ctx, r.baseURL+"/orders/"+orderID+"/payments")
	if err != nil {
		return nil, r.wrapErr("fetch order payments", err)
	}

	var result struct {
		Items []Payment `json:"items"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &Error{Op: "fetch order payments", Desc: "unparseable response", Err: err}
	}
	return result.Items, nil
}

func (r *RazorpayClient) CreateRefund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error) {
	body := map[string]interface{}{
		"amount": amount,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	resp, err := r.client.Post(ctx, r.baseURL+"/payments/"+paymentID+"/refund", body)
	if err != nil {
		return nil, r.wrapErr("create refund", err)
	}

	var refund Refund
	if err := json.Unmarshal(resp, &refund); err != nil {
		return nil, &Error{Op: "create refund", Desc: "unparseable response", Err: err}
	}
	if refund.ID == "" {
		return nil, &Error{Op: "create refund", Desc: "no refund id returned"}
	}
	return &refund, nil
}

func (r *RazorpayClient) FetchRefund(ctx context.Context, refundID string) (*Refund, error) {
	resp, err := r.client.Get(ctx, r.baseURL+"/refunds/"+refundID)
	if err != nil {
		return nil, r.wrapErr("fetch refund", err)
	}

	var refund Refund
	if err := json.Unmarshal(resp, &refund); err != nil {
		return nil, &Error{Op: "fetch refund", Desc: "unparseable response", Err: err}
	}
	return &refund, nil
}

// wrapErr converts transport and status failures into a gateway Error,
// surfacing the Razorpay error envelope description when present.
func (r *RazorpayClient) wrapErr(op string, err error) error {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		var envelope struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.Unmarshal(statusErr.Body, &envelope)
		return &Error{Op: op, Status: statusErr.StatusCode, Desc: envelope.Error.Description, Err: err}
	}
	return &Error{Op: op, Desc: "request failed", Err: err}
}
