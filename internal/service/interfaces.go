package service

import (
	"context"
	"time"

	"daanseva/internal/models"
	"daanseva/internal/repository"
)

// Storage interfaces are declared on the consumer side so tests can swap in
// in-memory fakes. internal/repository provides the gorm implementations.

type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	FindByGatewayOrderID(ctx context.Context, orderID string) (*models.Transaction, error)
	FindByGatewayPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error)
	// MarkCompleted performs the pending->completed flip and, when
	// campaignID is set, the campaign aggregate credit in one atomic unit.
	MarkCompleted(ctx context.Context, id, paymentID, method string, at time.Time, campaignID string, amount int64) (bool, error)
	MarkFailed(ctx context.Context, id, reason string, at time.Time) (bool, error)
	MarkRefunded(ctx context.Context, id, refundID string, amount int64, reason string, at time.Time) (bool, error)
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
}

type CampaignStore interface {
	FindByID(ctx context.Context, id string) (*models.Campaign, error)
}

type ProductStore interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	DecrementStock(ctx context.Context, id string) (bool, error)
}

type StatsStore interface {
	Summary(ctx context.Context, f repository.StatsFilter) (*repository.StatsSummary, error)
	MethodBreakdown(ctx context.Context, f repository.StatsFilter) ([]repository.MethodBucket, error)
	AnonymityBreakdown(ctx context.Context, f repository.StatsFilter) ([]repository.AnonymityBucket, error)
	DailySeries(ctx context.Context, f repository.StatsFilter, days int) ([]repository.DayBucket, error)
	Refunds(ctx context.Context, f repository.StatsFilter) (*repository.RefundSummary, error)
}
