package models

import "time"

// Campaign statuses.
const (
	CampaignStatusDraft  = "draft"
	CampaignStatusActive = "active"
	CampaignStatusClosed = "closed"
)

// Campaign maps to the `campaigns` table. RaisedAmount and DonorCount are
// written only by the settlement path, via atomic increment expressions, and
// are never decremented (refunds do not touch published totals).
type Campaign struct {
	ID          string `gorm:"column:id;primaryKey;size:36" json:"id"`
	Title       string `gorm:"column:title;size:300;not null" json:"title"`
	Slug        string `gorm:"column:slug;size:300;uniqueIndex" json:"slug"`
	Description string `gorm:"column:description;type:text" json:"description"`
	OrganizerID string `gorm:"column:organizer_id;size:36;index" json:"organizer_id,omitempty"`

	// Amounts in minor currency units (paise).
	GoalAmount  int64  `gorm:"column:goal_amount" json:"goal_amount"`
	MinDonation int64  `gorm:"column:min_donation" json:"min_donation"`
	Currency    string `gorm:"column:currency;size:3;default:INR" json:"currency"`

	RaisedAmount int64 `gorm:"column:raised_amount;not null;default:0" json:"raised_amount"`
	DonorCount   int64 `gorm:"column:donor_count;not null;default:0" json:"donor_count"`

	Status   string     `gorm:"column:status;size:20;index;default:draft" json:"status"`
	Deadline *time.Time `gorm:"column:deadline" json:"deadline,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// AcceptsDonations reports whether the campaign is open for new donations.
func (c *Campaign) AcceptsDonations(now time.Time) bool {
	if c.Status != CampaignStatusActive {
		return false
	}
	if c.Deadline != nil && now.After(*c.Deadline) {
		return false
	}
	return true
}
