package models

import "time"

// Product maps to the `products` table (merchandise sold alongside
// campaigns). Stock is decremented when an order settles, not when it is
// created, so abandoned checkouts never hold inventory.
type Product struct {
	ID          string `gorm:"column:id;primaryKey;size:36" json:"id"`
	Name        string `gorm:"column:name;size:300;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`

	// Price in minor currency units (paise).
	Price    int64  `gorm:"column:price;not null" json:"price"`
	Currency string `gorm:"column:currency;size:3;default:INR" json:"currency"`

	Stock  int64 `gorm:"column:stock;not null;default:0" json:"stock"`
	Active bool  `gorm:"column:active;default:true" json:"active"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
