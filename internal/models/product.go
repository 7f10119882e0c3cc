package models

import (
	"time"

	"gorm.io/gorm"
)

// Product catalog entry
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`                               // primary key
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`             // display name
	ImageURL  string         `gorm:"type:text" json:"image_url"`                         // cover image
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // unit price
	IsActive  bool           `gorm:"not null;default:true;index" json:"is_active"`       // listed
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                            // created
	UpdatedAt time.Time      `json:"updated_at"`                                         // updated
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                     // soft delete
}

// TableName table name
func (Product) TableName() string {
	return "products"
}
