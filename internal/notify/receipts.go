// Package notify delivers receipt notifications after settlement. Rendering
// and delivery live in an external mailer service; this package only hands
// it the settled transaction. Delivery failure never rolls back settlement.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"daanseva/internal/models"
	"daanseva/internal/pkg/httpclient"
	"daanseva/internal/pkg/utils"
)

// ReceiptSender is implemented by anything that can deliver a donation
// receipt for a settled transaction.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, tx *models.Transaction) error
}

// HTTPSender posts receipts to the mailer service.
type HTTPSender struct {
	endpoint string
	client   *httpclient.Client
	logger   *zap.Logger
}

func NewHTTPSender(endpoint, apiKey string, logger *zap.Logger) *HTTPSender {
	return &HTTPSender{
		endpoint: endpoint,
		client: httpclient.New().
			WithTimeout(10 * time.Second).
			WithHeader("X-Api-Key", apiKey),
		logger: logger,
	}
}

func (s *HTTPSender) SendReceipt(ctx context.Context, tx *models.Transaction) error {
	body := map[string]interface{}{
		"transaction_id": tx.ID,
		"kind":           tx.Kind,
		"receipt_ref":    tx.ReceiptRef,
		"donor_name":     tx.DonorName,
		"donor_email":    tx.DonorEmail,
		"amount":         tx.Amount,
		"amount_display": utils.FormatAmount(tx.Amount),
		"currency":       tx.Currency,
		"campaign_id":    tx.CampaignID,
		"completed_at":   tx.CompletedAt,
	}

	if _, err := s.client.Post(ctx, s.endpoint, body); err != nil {
		s.logger.Warn("receipt delivery failed",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// LogSender is used when no mailer endpoint is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendReceipt(_ context.Context, tx *models.Transaction) error {
	s.logger.Info("receipt (mailer not configured)",
		zap.String("transaction_id", tx.ID),
		zap.String("receipt_ref", tx.ReceiptRef),
		zap.Int64("amount", tx.Amount))
	return nil
}
