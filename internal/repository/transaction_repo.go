package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"daanseva/internal/models"
)

// TransactionRepository handles transaction database operations. State
// transitions are conditional single-statement updates: the WHERE clause
// carries the required current status and the caller branches on whether a
// row was actually changed, so two racing settlers can never both win.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create persists a new pending transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// FindByID returns a transaction by its id.
func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindByGatewayOrderID returns the transaction created for a gateway order.
func (r *TransactionRepository) FindByGatewayOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindByGatewayPaymentID returns the transaction settled by a gateway payment.
func (r *TransactionRepository) FindByGatewayPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("gateway_payment_id = ?", paymentID).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// MarkCompleted moves a transaction from pending to completed, stamping the
// gateway payment id and method, and credits the campaign aggregates in the
// same database transaction when campaignID is set. Either both writes land
// or neither does, so a failed aggregate increment leaves the row pending
// for a retry. Returns true when this call performed the transition and
// false when the row was no longer pending.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, id, paymentID, method string, at time.Time, campaignID string, amount int64) (bool, error) {
	won := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, models.TxStatusPending).
			Updates(map[string]interface{}{
				"status":             models.TxStatusCompleted,
				"payment_status":     models.TxStatusCompleted,
				"gateway_payment_id": paymentID,
				"method":             method,
				"completed_at":       at,
				"updated_at":         at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		won = true

		if campaignID != "" {
			// Increment-by-delta expressions keep concurrent settlements
			// from losing updates; never a read-modify-write.
			return tx.Model(&models.Campaign{}).
				Where("id = ?", campaignID).
				UpdateColumns(map[string]interface{}{
					"raised_amount": gorm.Expr("raised_amount + ?", amount),
					"donor_count":   gorm.Expr("donor_count + 1"),
				}).Error
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// MarkFailed moves a transaction from pending to failed. No-op when the row
// already left pending.
func (r *TransactionRepository) MarkFailed(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TxStatusPending).
		Updates(map[string]interface{}{
			"status":         models.TxStatusFailed,
			"payment_status": models.TxStatusFailed,
			"failure_reason": reason,
			"failed_at":      at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkRefunded moves a transaction from completed to refunded, recording the
// gateway refund identifier and amount. Returns false when the row was not
// completed (already refunded, or never settled).
func (r *TransactionRepository) MarkRefunded(ctx context.Context, id, refundID string, amount int64, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TxStatusCompleted).
		Updates(map[string]interface{}{
			"status":         models.TxStatusRefunded,
			"payment_status": models.TxStatusRefunded,
			"refund_id":      refundID,
			"refund_amount":  amount,
			"refund_reason":  reason,
			"refunded_at":    at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindStalePending returns pending transactions created before the cutoff,
// oldest first, for gateway reconciliation.
func (r *TransactionRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.TxStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

// FindCompletedByCampaign returns settled donations for a campaign, newest
// first, with paging.
func (r *TransactionRepository) FindCompletedByCampaign(ctx context.Context, campaignID string, limit, page int) ([]models.Transaction, int64, error) {
	var txs []models.Transaction
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.TxStatusCompleted)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("completed_at DESC").Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// FindByDonorEmail returns a donor's transactions, newest first.
func (r *TransactionRepository) FindByDonorEmail(ctx context.Context, email string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("donor_email = ?", email).
		Order("created_at DESC").
		Find(&txs).Error
	return txs, err
}
