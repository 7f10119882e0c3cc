package models

import (
	"time"

	"gorm.io/gorm"
)

// DiscountCode types
const (
	DiscountTypeFixed   = "fixed"
	DiscountTypePercent = "percent"
)

// DiscountCode redeemable discount
type DiscountCode struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                      // primary key
	Code        string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`         // upper-cased code
	Type        string         `gorm:"type:varchar(20);not null" json:"type"`                     // fixed / percent
	Value       Money          `gorm:"type:decimal(20,2);not null" json:"value"`                  // amount or percent
	MinAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_amount"`   // subtotal threshold
	MaxDiscount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_discount"` // cap for percent, 0 = none
	UsageLimit  int            `gorm:"not null;default:0" json:"usage_limit"`                     // 0 = unlimited
	UsedCount   int            `gorm:"not null;default:0" json:"used_count"`                      // atomic counter
	StartsAt    *time.Time     `gorm:"index" json:"starts_at"`                                    // valid from
	EndsAt      *time.Time     `gorm:"index" json:"ends_at"`                                      // valid until
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`                    // enabled
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                   // created
	UpdatedAt   time.Time      `json:"updated_at"`                                                // updated
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                            // soft delete
}

// TableName table name
func (DiscountCode) TableName() string {
	return "discount_codes"
}
