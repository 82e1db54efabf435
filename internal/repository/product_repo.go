package repository

import (
	"context"

	"gorm.io/gorm"

	"daanseva/internal/models"
)

// ProductRepository handles product database operations.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindAll returns products, optionally only active ones.
func (r *ProductRepository) FindAll(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	var products []models.Product
	db := r.db.WithContext(ctx).Model(&models.Product{})
	if activeOnly {
		db = db.Where("active = ?", true)
	}
	err := db.Order("created_at DESC").Find(&products).Error
	return products, err
}

// FindByID returns a product by id.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create creates a new product.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update updates product fields.
func (r *ProductRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error
}

// DecrementStock takes one unit of stock. Returns false when no stock was
// left; the guard lives in the WHERE clause so concurrent settlements cannot
// oversell.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock > 0", id).
		UpdateColumn("stock", gorm.Expr("stock - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
