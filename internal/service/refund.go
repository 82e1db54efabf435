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
)

// Refunds issues gateway reversals for completed transactions. Published
// campaign aggregates are deliberately left untouched on refund; the
// statistics layer exposes the net view.
type Refunds struct {
	transactions TransactionStore
	gateway      gateway.Client
	logger       *zap.Logger
}

func NewRefunds(transactions TransactionStore, gw gateway.Client, logger *zap.Logger) *Refunds {
	return &Refunds{
		transactions: transactions,
		gateway:      gw,
		logger:       logger,
	}
}

// Issue requests a reversal for up to the original amount against a settled
// payment. A gateway-side failure leaves the transaction untouched; only
// after the gateway accepts the refund does the completed->refunded
// transition run, and it is conditional like every other transition.
func (s *Refunds) Issue(ctx context.Context, paymentID string, amount int64, reason string) (*models.Transaction, error) {
	if paymentID == "" || amount <= 0 {
		return nil, ErrValidation
	}

	tx, err := s.transactions.FindByGatewayPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("refund: lookup transaction: %w", err)
	}

	if tx.Status != models.TxStatusCompleted {
		return nil, ErrInvalidRefundState
	}
	if amount > tx.Amount {
		return nil, ErrValidation
	}

	refund, err := s.gateway.CreateRefund(ctx, paymentID, amount, map[string]string{
		"transaction_id": tx.ID,
		"reason":         reason,
	})
	if err != nil {
		s.logger.Error("gateway refund failed",
			zap.String("transaction_id", tx.ID),
			zap.String("gateway_payment_id", paymentID),
			zap.Int64("amount", amount),
			zap.Error(err))
		return nil, err
	}

	now := time.Now().UTC()
	won, err := s.transactions.MarkRefunded(ctx, tx.ID, refund.ID, amount, reason, now)
	if err != nil {
		return nil, fmt.Errorf("refund: mark refunded: %w", err)
	}
	if !won {
		// A concurrent refund completed first; the gateway holds the
		// authoritative record for this refund id.
		s.logger.Warn("refund transition lost to a concurrent refund",
			zap.String("transaction_id", tx.ID),
			zap.String("refund_id", refund.ID))
		return nil, ErrInvalidRefundState
	}

	tx.Status = models.TxStatusRefunded
	tx.PaymentStatus = models.TxStatusRefunded
	tx.RefundID = refund.ID
	tx.RefundAmount = amount
	tx.RefundReason = reason
	tx.RefundedAt = &now

	s.logger.Info("transaction refunded",
		zap.String("transaction_id", tx.ID),
		zap.String("gateway_payment_id", paymentID),
		zap.String("refund_id", refund.ID),
		zap.Int64("amount", amount))

	return tx, nil
}
