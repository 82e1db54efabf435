package repository

import (
	"context"

	"gorm.io/gorm"

	"daanseva/internal/models"
)

// CampaignRepository handles campaign database operations.
type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// FindAll returns campaigns with pagination and optional status filter.
func (r *CampaignRepository) FindAll(ctx context.Context, status string, limit, page int) ([]models.Campaign, int64, error) {
	var campaigns []models.Campaign
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Campaign{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

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

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// FindByID returns a campaign by id.
func (r *CampaignRepository) FindByID(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

// FindBySlug returns a campaign by slug.
func (r *CampaignRepository) FindBySlug(ctx context.Context, slug string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

// Create creates a new campaign.
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

// Update updates campaign fields. raised_amount and donor_count are owned by
// the settlement transaction and must never appear in updates.
func (r *CampaignRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Campaign{}).Where("id = ?", id).Updates(updates).Error
}
