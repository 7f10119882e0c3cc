package models

import "time"

// OrderItem immutable line item with a product snapshot
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                     // primary key
	OrderID     uint      `gorm:"index;not null" json:"order_id"`                           // owning order
	ProductID   uint      `gorm:"index;not null" json:"product_id"`                         // catalog product
	ProductName string    `gorm:"type:varchar(255);not null" json:"product_name"`           // name at purchase time
	ProductImg  string    `gorm:"type:text" json:"product_img"`                             // image at purchase time
	Quantity    int       `gorm:"not null" json:"quantity"`                                 // positive
	UnitPrice   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // price at purchase time
	TotalPrice  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // quantity * unit price
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                  // created
}

// TableName table name
func (OrderItem) TableName() string {
	return "order_items"
}
