package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"daanseva/internal/models"
)

// StatsFilter narrows statistics queries. Zero values mean "no filter".
type StatsFilter struct {
	From       *time.Time
	To         *time.Time
	CampaignID string
	DonorEmail string
	// IncludeRefunded widens the scope from completed-only to
	// completed+refunded (the refund-inclusive view).
	IncludeRefunded bool
}

// StatsSummary is the aggregate row over settled transactions.
type StatsSummary struct {
	Count int64 `json:"count"`
	Total int64 `json:"total"`
	Avg   int64 `json:"avg"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// MethodBucket is one row of the payment-method breakdown.
type MethodBucket struct {
	Method string `json:"method"`
	Count  int64  `json:"count"`
	Total  int64  `json:"total"`
}

// AnonymityBucket splits totals by the anonymous flag.
type AnonymityBucket struct {
	Anonymous bool  `json:"anonymous"`
	Count     int64 `json:"count"`
	Total     int64 `json:"total"`
}

// DayBucket is one day of the recent-activity series.
type DayBucket struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
	Total int64  `json:"total"`
}

// RefundSummary aggregates refunded transactions for the net view.
type RefundSummary struct {
	Count          int64 `json:"count"`
	RefundedAmount int64 `json:"refunded_amount"`
}

// StatsRepository is the read model over settled transactions. It never
// mutates transaction or campaign state.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// scope applies the status discipline and filters: pending and failed rows
// are never visible to statistics.
func (r *StatsRepository) scope(ctx context.Context, f StatsFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&models.Transaction{})

	if f.IncludeRefunded {
		db = db.Where("status IN ?", []string{models.TxStatusCompleted, models.TxStatusRefunded})
	} else {
		db = db.Where("status = ?", models.TxStatusCompleted)
	}
	if f.CampaignID != "" {
		db = db.Where("campaign_id = ?", f.CampaignID)
	}
	if f.DonorEmail != "" {
		db = db.Where("donor_email = ?", f.DonorEmail)
	}
	if f.From != nil {
		db = db.Where("completed_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("completed_at < ?", *f.To)
	}
	return db
}

// Summary computes count/sum/avg/min/max over the filtered scope.
func (r *StatsRepository) Summary(ctx context.Context, f StatsFilter) (*StatsSummary, error) {
	var s StatsSummary
	err := r.scope(ctx, f).
		Select("COUNT(*) AS count, COALESCE(SUM(amount),0) AS total, COALESCE(AVG(amount),0) AS avg, COALESCE(MIN(amount),0) AS min, COALESCE(MAX(amount),0) AS max").
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// MethodBreakdown groups the filtered scope by payment method.
func (r *StatsRepository) MethodBreakdown(ctx context.Context, f StatsFilter) ([]MethodBucket, error) {
	var buckets []MethodBucket
	err := r.scope(ctx, f).
		Select("method, COUNT(*) AS count, COALESCE(SUM(amount),0) AS total").
		Group("method").
		Order("total DESC").
		Scan(&buckets).Error
	return buckets, err
}

// AnonymityBreakdown splits the filtered scope by the anonymous flag.
func (r *StatsRepository) AnonymityBreakdown(ctx context.Context, f StatsFilter) ([]AnonymityBucket, error) {
	var buckets []AnonymityBucket
	err := r.scope(ctx, f).
		Select("anonymous, COUNT(*) AS count, COALESCE(SUM(amount),0) AS total").
		Group("anonymous").
		Scan(&buckets).Error
	return buckets, err
}

// DailySeries returns per-day settled activity for the last `days` days.
func (r *StatsRepository) DailySeries(ctx context.Context, f StatsFilter, days int) ([]DayBucket, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)
	if f.From == nil || f.From.Before(since) {
		f.From = &since
	}

	var buckets []DayBucket
	err := r.scope(ctx, f).
		Select("DATE(completed_at) AS day, COUNT(*) AS count, COALESCE(SUM(amount),0) AS total").
		Group("DATE(completed_at)").
		Order("day ASC").
		Scan(&buckets).Error
	return buckets, err
}

// Refunds aggregates refunded transactions within the filter window (status
// scope is fixed to refunded regardless of IncludeRefunded).
func (r *StatsRepository) Refunds(ctx context.Context, f StatsFilter) (*RefundSummary, error) {
	db := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("status = ?", models.TxStatusRefunded)
	if f.CampaignID != "" {
		db = db.Where("campaign_id = ?", f.CampaignID)
	}
	if f.From != nil {
		db = db.Where("refunded_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("refunded_at < ?", *f.To)
	}

	var s RefundSummary
	err := db.
		Select("COUNT(*) AS count, COALESCE(SUM(refund_amount),0) AS refunded_amount").
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
