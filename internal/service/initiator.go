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
	"daanseva/internal/pkg/utils"
)

// DonationIntent describes a donor's request to give to a campaign.
type DonationIntent struct {
	CampaignID string
	UserID     string
	DonorName  string
	DonorEmail string
	Anonymous  bool
	Message    string
	// Amount in minor currency units (paise).
	Amount int64
}

// OrderIntent describes a merchandise purchase request.
type OrderIntent struct {
	ProductID  string
	UserID     string
	DonorName  string
	DonorEmail string
}

// InitiatedOrder is what the caller needs to render the gateway payment UI.
type InitiatedOrder struct {
	Transaction  *models.Transaction
	GatewayOrder *gateway.Order
}

// Initiator validates business preconditions, creates the gateway order and
// persists the pending transaction — in that strict order, so a gateway
// failure leaves no transaction behind.
type Initiator struct {
	transactions TransactionStore
	campaigns    CampaignStore
	products     ProductStore
	gateway      gateway.Client
	logger       *zap.Logger
}

func NewInitiator(
	transactions TransactionStore,
	campaigns CampaignStore,
	products ProductStore,
	gw gateway.Client,
	logger *zap.Logger,
) *Initiator {
	return &Initiator{
		transactions: transactions,
		campaigns:    campaigns,
		products:     products,
		gateway:      gw,
		logger:       logger,
	}
}

// CreateDonation opens a pending donation transaction against a campaign.
func (s *Initiator) CreateDonation(ctx context.Context, intent DonationIntent) (*InitiatedOrder, error) {
	if intent.CampaignID == "" || intent.Amount <= 0 {
		return nil, ErrValidation
	}
	if intent.DonorEmail == "" && intent.UserID == "" {
		return nil, ErrValidation
	}

	campaign, err := s.campaigns.FindByID(ctx, intent.CampaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrValidation
		}
		return nil, fmt.Errorf("create donation: lookup campaign: %w", err)
	}
	if !campaign.AcceptsDonations(time.Now()) {
		return nil, ErrTargetUnavailable
	}
	if campaign.MinDonation > 0 && intent.Amount < campaign.MinDonation {
		return nil, ErrValidation
	}

	tx := &models.Transaction{
		ID:         utils.GenerateUUID(),
		Kind:       models.TxKindDonation,
		CampaignID: campaign.ID,
		UserID:     intent.UserID,
		DonorName:  intent.DonorName,
		DonorEmail: intent.DonorEmail,
		Anonymous:  intent.Anonymous,
		Message:    intent.Message,
		Amount:     intent.Amount,
		Currency:   campaign.Currency,
		ReceiptRef: utils.GenerateReceiptRef(),
	}

	return s.openOrder(ctx, tx, map[string]string{
		"kind":        models.TxKindDonation,
		"campaign_id": campaign.ID,
	})
}

// CreateOrder opens a pending merchandise order transaction.
func (s *Initiator) CreateOrder(ctx context.Context, intent OrderIntent) (*InitiatedOrder, error) {
	if intent.ProductID == "" {
		return nil, ErrValidation
	}
	if intent.DonorEmail == "" && intent.UserID == "" {
		return nil, ErrValidation
	}

	product, err := s.products.FindByID(ctx, intent.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrValidation
		}
		return nil, fmt.Errorf("create order: lookup product: %w", err)
	}
	if !product.Active || product.Stock <= 0 {
		return nil, ErrTargetUnavailable
	}

	tx := &models.Transaction{
		ID:         utils.GenerateUUID(),
		Kind:       models.TxKindOrder,
		ProductID:  product.ID,
		UserID:     intent.UserID,
		DonorName:  intent.DonorName,
		DonorEmail: intent.DonorEmail,
		Amount:     product.Price,
		Currency:   product.Currency,
		ReceiptRef: utils.GenerateReceiptRef(),
	}

	return s.openOrder(ctx, tx, map[string]string{
		"kind":       models.TxKindOrder,
		"product_id": product.ID,
	})
}

// openOrder creates the gateway order first and only then persists the
// pending transaction carrying the returned order id.
func (s *Initiator) openOrder(ctx context.Context, tx *models.Transaction, notes map[string]string) (*InitiatedOrder, error) {
	notes["transaction_id"] = tx.ID

	order, err := s.gateway.CreateOrder(ctx, tx.Amount, tx.Currency, tx.ReceiptRef, notes)
	if err != nil {
		s.logger.Error("gateway order creation failed",
			zap.String("transaction_id", tx.ID),
			zap.Int64("amount", tx.Amount),
			zap.Error(err))
		return nil, err
	}

	tx.Status = models.TxStatusPending
	tx.PaymentStatus = models.TxStatusPending
	tx.GatewayOrderID = order.ID

	if err := s.transactions.Create(ctx, tx); err != nil {
		// The gateway order is abandoned; unpaid orders expire upstream.
		s.logger.Error("failed to persist pending transaction",
			zap.String("transaction_id", tx.ID),
			zap.String("gateway_order_id", order.ID),
			zap.Error(err))
		return nil, fmt.Errorf("open order: persist transaction: %w", err)
	}

	s.logger.Info("transaction opened",
		zap.String("transaction_id", tx.ID),
		zap.String("kind", tx.Kind),
		zap.String("gateway_order_id", order.ID),
		zap.Int64("amount", tx.Amount))

	return &InitiatedOrder{Transaction: tx, GatewayOrder: order}, nil
}
