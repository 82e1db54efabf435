package models

import "time"

// Transaction statuses. Valid transitions are pending->completed,
// pending->failed and completed->refunded; everything else is rejected
// at the repository layer.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusRefunded  = "refunded"
)

// Transaction kinds.
const (
	TxKindDonation = "donation"
	TxKindOrder    = "order"
)

// Transaction maps to the `transactions` table. It models a donation and a
// product order identically: one row per payment attempt against the gateway.
type Transaction struct {
	ID         string `gorm:"column:id;primaryKey;size:36" json:"id"`
	Kind       string `gorm:"column:kind;size:20;index" json:"kind"`
	CampaignID string `gorm:"column:campaign_id;size:36;index" json:"campaign_id,omitempty"`
	ProductID  string `gorm:"column:product_id;size:36;index" json:"product_id,omitempty"`

	UserID     string `gorm:"column:user_id;size:36;index" json:"user_id,omitempty"`
	DonorName  string `gorm:"column:donor_name;size:200" json:"donor_name"`
	DonorEmail string `gorm:"column:donor_email;size:200;index" json:"donor_email"`
	Anonymous  bool   `gorm:"column:anonymous" json:"anonymous"`
	Message    string `gorm:"column:message;size:500" json:"message,omitempty"`

	// Amount is in minor currency units (paise).
	Amount   int64  `gorm:"column:amount;not null" json:"amount"`
	Currency string `gorm:"column:currency;size:3;not null" json:"currency"`

	Status        string `gorm:"column:status;size:20;index;default:pending" json:"status"`
	PaymentStatus string `gorm:"column:payment_status;size:20;default:pending" json:"payment_status"`

	// GatewayOrderID is set once at creation. GatewayPaymentID stays NULL
	// until the first successful settlement stamps it and never changes; the
	// column is a pointer so the unique index only constrains set payment
	// ids, never the unsettled rows.
	GatewayOrderID   string  `gorm:"column:gateway_order_id;size:64;uniqueIndex" json:"gateway_order_id"`
	GatewayPaymentID *string `gorm:"column:gateway_payment_id;size:64;uniqueIndex" json:"gateway_payment_id,omitempty"`
	Method           string `gorm:"column:method;size:40" json:"method,omitempty"`
	ReceiptRef       string `gorm:"column:receipt_ref;size:64" json:"receipt_ref"`

	RefundID     string     `gorm:"column:refund_id;size:64" json:"refund_id,omitempty"`
	RefundAmount int64      `gorm:"column:refund_amount" json:"refund_amount,omitempty"`
	RefundReason string     `gorm:"column:refund_reason;size:255" json:"refund_reason,omitempty"`
	RefundedAt   *time.Time `gorm:"column:refunded_at" json:"refunded_at,omitempty"`

	FailureReason string     `gorm:"column:failure_reason;size:255" json:"failure_reason,omitempty"`
	FailedAt      *time.Time `gorm:"column:failed_at" json:"failed_at,omitempty"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// DonorKey identifies the donor for aggregate counting: user id, then donor
// email, then the transaction id as a synthetic per-transaction key.
func (t *Transaction) DonorKey() string {
	if t.UserID != "" {
		return "user:" + t.UserID
	}
	if t.DonorEmail != "" {
		return "email:" + t.DonorEmail
	}
	return "tx:" + t.ID
}
