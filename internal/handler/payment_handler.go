package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"daanseva/internal/gateway"
	"daanseva/internal/models"
	"daanseva/internal/service"
)

// Consumer-side interfaces over the settlement core, so handler tests can
// run against fakes.

type orderInitiator interface {
	CreateDonation(ctx context.Context, intent service.DonationIntent) (*service.InitiatedOrder, error)
	CreateOrder(ctx context.Context, intent service.OrderIntent) (*service.InitiatedOrder, error)
}

type settler interface {
	VerifyAndSettle(ctx context.Context, orderID, paymentID, sig string) (*service.SettlementResult, error)
}

type refundIssuer interface {
	Issue(ctx context.Context, paymentID string, amount int64, reason string) (*models.Transaction, error)
}

// PaymentHandler exposes the donation/order initiation, client-verify and
// refund endpoints.
type PaymentHandler struct {
	initiator  orderInitiator
	settlement settler
	refunds    refundIssuer
	gatewayKey string
	logger     *zap.Logger
}

func NewPaymentHandler(initiator orderInitiator, settlement settler, refunds refundIssuer, gatewayKey string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		initiator:  initiator,
		settlement: settlement,
		refunds:    refunds,
		gatewayKey: gatewayKey,
		logger:     logger,
	}
}

type donationRequest struct {
	CampaignID string `json:"campaign_id"`
	Amount     int64  `json:"amount"`
	DonorName  string `json:"donor_name"`
	DonorEmail string `json:"donor_email"`
	UserID     string `json:"user_id"`
	Anonymous  bool   `json:"anonymous"`
	Message    string `json:"message"`
}

// CreateDonation opens a pending donation and returns what the payment UI
// needs.
// POST /api/donations
func (h *PaymentHandler) CreateDonation(c echo.Context) error {
	var req donationRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}

	result, err := h.initiator.CreateDonation(c.Request().Context(), service.DonationIntent{
		CampaignID: req.CampaignID,
		UserID:     req.UserID,
		DonorName:  req.DonorName,
		DonorEmail: req.DonorEmail,
		Anonymous:  req.Anonymous,
		Message:    req.Message,
		Amount:     req.Amount,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusCreated, h.initiatedPayload(result))
}

type orderRequest struct {
	ProductID  string `json:"product_id"`
	DonorName  string `json:"donor_name"`
	DonorEmail string `json:"donor_email"`
	UserID     string `json:"user_id"`
}

// CreateOrder opens a pending merchandise order.
// POST /api/orders
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}

	result, err := h.initiator.CreateOrder(c.Request().Context(), service.OrderIntent{
		ProductID:  req.ProductID,
		UserID:     req.UserID,
		DonorName:  req.DonorName,
		DonorEmail: req.DonorEmail,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusCreated, h.initiatedPayload(result))
}

func (h *PaymentHandler) initiatedPayload(result *service.InitiatedOrder) map[string]interface{} {
	return map[string]interface{}{
		"transaction_id":   result.Transaction.ID,
		"gateway_order_id": result.GatewayOrder.ID,
		"gateway_key_id":   h.gatewayKey,
		"amount":           result.Transaction.Amount,
		"currency":         result.Transaction.Currency,
		"receipt_ref":      result.Transaction.ReceiptRef,
	}
}

type verifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Verify is the client-callback completion path.
// POST /api/payments/verify
func (h *PaymentHandler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}

	result, err := h.settlement.VerifyAndSettle(c.Request().Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"verified":         true,
		"alreadyProcessed": result.AlreadyProcessed,
		"transaction_id":   result.Transaction.ID,
		"status":           result.Transaction.Status,
	})
}

type refundRequest struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

// Refund issues a gateway reversal for a settled transaction.
// POST /api/payments/refund (admin)
func (h *PaymentHandler) Refund(c echo.Context) error {
	var req refundRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}

	tx, err := h.refunds.Issue(c.Request().Context(), req.PaymentID, req.Amount, req.Reason)
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return errorResponse(c, http.StatusBadGateway, "REFUND_FAILED", "gateway refund failed")
		}
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"refund_id":      tx.RefundID,
		"transaction_id": tx.ID,
		"amount":         tx.RefundAmount,
		"status":         tx.Status,
	})
}
