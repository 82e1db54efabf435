package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"daanseva/internal/gateway"
	"daanseva/internal/signature"
)

// EventKind is the closed set of gateway webhook events this system acts on.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentCaptured
	EventPaymentFailed
	EventOrderPaid
)

func (k EventKind) String() string {
	switch k {
	case EventPaymentCaptured:
		return "payment.captured"
	case EventPaymentFailed:
		return "payment.failed"
	case EventOrderPaid:
		return "order.paid"
	default:
		return "unknown"
	}
}

// ParseEventKind maps a gateway event name onto the closed enum; anything
// not recognised is EventUnknown, which is acknowledged and ignored.
func ParseEventKind(event string) EventKind {
	switch event {
	case "payment.captured":
		return EventPaymentCaptured
	case "payment.failed":
		return EventPaymentFailed
	case "order.paid":
		return EventOrderPaid
	default:
		return EventUnknown
	}
}

// webhookEnvelope is the gateway notification body. It is parsed only after
// the raw-body signature checks out.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity gateway.Payment `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity gateway.Order `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// WebhookOutcome tells the handler what happened; every authenticated event
// is acknowledged, including ignored ones.
type WebhookOutcome struct {
	Kind             EventKind
	Ignored          bool
	AlreadyProcessed bool
}

// Dispatcher authenticates gateway webhooks and routes them to the
// settlement processor.
type Dispatcher struct {
	verifier   *signature.Verifier
	settlement *Settlement
	logger     *zap.Logger
}

func NewDispatcher(verifier *signature.Verifier, settlement *Settlement, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		verifier:   verifier,
		settlement: settlement,
		logger:     logger,
	}
}

// Dispatch verifies the signature over the exact raw bytes, then classifies
// and routes the event. A signature mismatch short-circuits before the body
// is parsed or trusted.
func (d *Dispatcher) Dispatch(ctx context.Context, rawBody []byte, sig string) (*WebhookOutcome, error) {
	if !d.verifier.VerifyWebhookPayload(rawBody, sig) {
		d.logger.Warn("webhook signature mismatch",
			zap.Int("body_bytes", len(rawBody)))
		return nil, ErrWebhookAuth
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		d.logger.Error("authenticated webhook with malformed body", zap.Error(err))
		return nil, fmt.Errorf("dispatch: parse body: %w", err)
	}

	kind := ParseEventKind(envelope.Event)
	switch kind {
	case EventPaymentCaptured:
		result, err := d.settlement.Settle(ctx, envelope.Payload.Payment.Entity)
		if err != nil {
			return nil, err
		}
		return &WebhookOutcome{Kind: kind, AlreadyProcessed: result.AlreadyProcessed}, nil

	case EventPaymentFailed:
		entity := envelope.Payload.Payment.Entity
		result, err := d.settlement.Fail(ctx, entity.OrderID, entity.ErrorDescription)
		if err != nil {
			return nil, err
		}
		return &WebhookOutcome{Kind: kind, AlreadyProcessed: result.AlreadyProcessed}, nil

	case EventOrderPaid:
		// Informational; payment.captured already carries the state change.
		return &WebhookOutcome{Kind: kind, Ignored: true}, nil

	default:
		d.logger.Info("ignoring unrecognised webhook event",
			zap.String("event", envelope.Event))
		return &WebhookOutcome{Kind: EventUnknown, Ignored: true}, nil
	}
}
