package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"daanseva/internal/models"
	"daanseva/internal/pkg/utils"
)

// MigrateAndSeed ensures required tables exist and, in development, inserts
// a demo campaign so the API is usable out of the box.
func MigrateAndSeed(db *gorm.DB, env string) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if env == "development" {
		if err := seedDevCampaign(db); err != nil {
			return fmt.Errorf("seed defaults failed: %w", err)
		}
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		&models.Campaign{},
		&models.Product{},
		&models.Transaction{},
	}
}

func seedDevCampaign(db *gorm.DB) error {
	var existing models.Campaign
	err := db.Where("slug = ?", "demo-campaign").First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	deadline := time.Now().AddDate(0, 3, 0)
	return db.Create(&models.Campaign{
		ID:          utils.GenerateUUID(),
		Title:       "Demo Campaign",
		Slug:        "demo-campaign",
		Description: "Seeded development campaign.",
		GoalAmount:  10_000_000,
		MinDonation: 10_000,
		Currency:    "INR",
		Status:      models.CampaignStatusActive,
		Deadline:    &deadline,
	}).Error
}
