package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"daanseva/internal/gateway"
	"daanseva/internal/service"
)

// errorBody is the error envelope: a stable machine code plus a human
// message. Idempotent no-ops never come through here; they are 200s.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorResponse(c echo.Context, status int, code, message string) error {
	return c.JSON(status, errorBody{Code: code, Message: message})
}

// serviceError maps the settlement core's error taxonomy onto HTTP codes.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request")
	case errors.Is(err, service.ErrTargetUnavailable):
		return errorResponse(c, http.StatusBadRequest, "TARGET_UNAVAILABLE", "target cannot accept this transaction")
	case errors.Is(err, service.ErrVerificationFailed):
		return errorResponse(c, http.StatusBadRequest, "PAYMENT_VERIFICATION_FAILED", "payment verification failed")
	case errors.Is(err, service.ErrWebhookAuth):
		return errorResponse(c, http.StatusUnauthorized, "WEBHOOK_AUTH_FAILED", "webhook signature verification failed")
	case errors.Is(err, service.ErrTransactionNotFound):
		return errorResponse(c, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "no matching transaction")
	case errors.Is(err, service.ErrInvalidRefundState):
		return errorResponse(c, http.StatusBadRequest, "INVALID_REFUND_STATE", "transaction is not refundable")
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return errorResponse(c, http.StatusBadGateway, "GATEWAY_ERROR", "payment gateway request failed")
	}

	return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}
