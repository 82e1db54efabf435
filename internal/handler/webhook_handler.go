package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"daanseva/internal/service"
)

// HeaderWebhookSignature carries the gateway's HMAC over the raw body.
const HeaderWebhookSignature = "X-Gateway-Signature"

type webhookDispatcher interface {
	Dispatch(ctx context.Context, rawBody []byte, sig string) (*service.WebhookOutcome, error)
}

// WebhookHandler receives gateway event notifications. Once the signature is
// valid every event is acknowledged with 2xx, recognised or not, so the
// gateway does not retry-storm us; only auth failures get 4xx.
type WebhookHandler struct {
	dispatcher webhookDispatcher
	logger     *zap.Logger
}

func NewWebhookHandler(dispatcher webhookDispatcher, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, logger: logger}
}

// Handle processes one webhook delivery.
// POST /webhooks/gateway
func (h *WebhookHandler) Handle(c echo.Context) error {
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "unreadable body")
	}

	sig := c.Request().Header.Get(HeaderWebhookSignature)
	outcome, err := h.dispatcher.Dispatch(c.Request().Context(), rawBody, sig)
	if err != nil {
		if errors.Is(err, service.ErrWebhookAuth) {
			return errorResponse(c, http.StatusUnauthorized, "WEBHOOK_AUTH_FAILED", "webhook signature verification failed")
		}
		// Any other failure on an authenticated event gets a 5xx so the
		// gateway retries; a possibly transient integrity problem must not
		// be swallowed with a 4xx.
		h.logger.Error("webhook event processing failed", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "WEBHOOK_PROCESSING_FAILED", "event could not be processed")
	}

	status := "processed"
	if outcome.Ignored {
		status = "ignored"
	} else if outcome.AlreadyProcessed {
		status = "already_processed"
	}

	return c.JSON(http.StatusOK, map[string]string{
		"event":  outcome.Kind.String(),
		"status": status,
	})
}
