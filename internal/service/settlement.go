package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"daanseva/internal/gateway"
	"daanseva/internal/models"
	"daanseva/internal/notify"
	"daanseva/internal/signature"
)

// SettlementResult reports whether this call performed the transition.
// AlreadyProcessed is a success, not an error: retries and the second of two
// racing completion paths land here.
type SettlementResult struct {
	AlreadyProcessed bool
	Transaction      *models.Transaction
}

// Settlement is the single authoritative path for marking money received.
// Both the webhook path and the client-verify path funnel through Settle.
type Settlement struct {
	transactions TransactionStore
	products     ProductStore
	gateway      gateway.Client
	verifier     *signature.Verifier
	receipts     notify.ReceiptSender
	logger       *zap.Logger
}

func NewSettlement(
	transactions TransactionStore,
	products ProductStore,
	gw gateway.Client,
	verifier *signature.Verifier,
	receipts notify.ReceiptSender,
	logger *zap.Logger,
) *Settlement {
	return &Settlement{
		transactions: transactions,
		products:     products,
		gateway:      gw,
		verifier:     verifier,
		receipts:     receipts,
		logger:       logger,
	}
}

// Settle applies the idempotent completion transition for a gateway payment.
// The payment must already have passed signature verification. The
// pending->completed flip is a single conditional update; losing the race is
// reported as AlreadyProcessed, and only the winner touches aggregates or
// sends the receipt.
func (s *Settlement) Settle(ctx context.Context, payment gateway.Payment) (*SettlementResult, error) {
	tx, err := s.transactions.FindByGatewayOrderID(ctx, payment.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("settlement for unknown gateway order",
				zap.String("gateway_order_id", payment.OrderID),
				zap.String("gateway_payment_id", payment.ID))
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("settle: lookup transaction: %w", err)
	}

	if tx.Status != models.TxStatusPending {
		return &SettlementResult{AlreadyProcessed: true, Transaction: tx}, nil
	}

	method := payment.Method
	if method == "" {
		method = "unknown"
	}

	// The status flip and the campaign aggregate credit commit or roll back
	// as one unit; an error here leaves the row pending for a later retry.
	now := time.Now().UTC()
	won, err := s.transactions.MarkCompleted(ctx, tx.ID, payment.ID, method, now, tx.CampaignID, tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("settle: mark completed: %w", err)
	}
	if !won {
		// Another caller flipped the row between our read and the update.
		current, ferr := s.transactions.FindByID(ctx, tx.ID)
		if ferr != nil {
			current = tx
		}
		return &SettlementResult{AlreadyProcessed: true, Transaction: current}, nil
	}

	tx.Status = models.TxStatusCompleted
	tx.PaymentStatus = models.TxStatusCompleted
	tx.GatewayPaymentID = &payment.ID
	tx.Method = method
	tx.CompletedAt = &now

	if tx.Kind == models.TxKindOrder && tx.ProductID != "" {
		taken, err := s.products.DecrementStock(ctx, tx.ProductID)
		if err != nil {
			s.logger.Error("stock decrement failed after settlement",
				zap.String("transaction_id", tx.ID),
				zap.String("product_id", tx.ProductID),
				zap.Error(err))
		} else if !taken {
			s.logger.Warn("order settled with no stock left",
				zap.String("transaction_id", tx.ID),
				zap.String("product_id", tx.ProductID))
		}
	}

	s.logger.Info("transaction settled",
		zap.String("transaction_id", tx.ID),
		zap.String("gateway_order_id", tx.GatewayOrderID),
		zap.String("gateway_payment_id", payment.ID),
		zap.Int64("amount", tx.Amount),
		zap.String("donor_key", tx.DonorKey()))

	s.sendReceipt(tx)

	return &SettlementResult{AlreadyProcessed: false, Transaction: tx}, nil
}

// VerifyAndSettle is the client-callback completion path: authenticate the
// browser-submitted signature, then settle. Method metadata comes from a
// best-effort payment fetch; a fetch failure never blocks settlement.
func (s *Settlement) VerifyAndSettle(ctx context.Context, orderID, paymentID, sig string) (*SettlementResult, error) {
	if !s.verifier.VerifyClientCallback(orderID, paymentID, sig) {
		s.logger.Warn("client callback signature mismatch",
			zap.String("gateway_order_id", orderID),
			zap.String("gateway_payment_id", paymentID))
		return nil, ErrVerificationFailed
	}

	payment := gateway.Payment{ID: paymentID, OrderID: orderID}
	if fetched, err := s.gateway.FetchPayment(ctx, paymentID); err == nil && fetched != nil {
		payment.Method = fetched.Method
	} else if err != nil {
		s.logger.Warn("payment fetch failed on verify path",
			zap.String("gateway_payment_id", paymentID),
			zap.Error(err))
	}

	return s.Settle(ctx, payment)
}

// Fail applies the pending->failed transition for a gateway order. Already
// failed or completed transactions make this a no-op.
func (s *Settlement) Fail(ctx context.Context, orderID, reason string) (*SettlementResult, error) {
	tx, err := s.transactions.FindByGatewayOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("failure event for unknown gateway order",
				zap.String("gateway_order_id", orderID))
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("fail: lookup transaction: %w", err)
	}

	if tx.Status != models.TxStatusPending {
		return &SettlementResult{AlreadyProcessed: true, Transaction: tx}, nil
	}

	if reason == "" {
		reason = "payment failed"
	}
	now := time.Now().UTC()
	won, err := s.transactions.MarkFailed(ctx, tx.ID, reason, now)
	if err != nil {
		return nil, fmt.Errorf("fail: mark failed: %w", err)
	}
	if !won {
		return &SettlementResult{AlreadyProcessed: true, Transaction: tx}, nil
	}

	tx.Status = models.TxStatusFailed
	tx.PaymentStatus = models.TxStatusFailed
	tx.FailureReason = reason
	tx.FailedAt = &now

	s.logger.Info("transaction failed",
		zap.String("transaction_id", tx.ID),
		zap.String("gateway_order_id", orderID),
		zap.String("reason", reason))

	return &SettlementResult{AlreadyProcessed: false, Transaction: tx}, nil
}

// sendReceipt fires the notification without blocking or failing the
// settlement path.
func (s *Settlement) sendReceipt(tx *models.Transaction) {
	if s.receipts == nil {
		return
	}
	txCopy := *tx
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = s.receipts.SendReceipt(ctx, &txCopy)
	}()
}
