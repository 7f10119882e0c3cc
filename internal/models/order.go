package models

import (
	"time"

	"github.com/leafbox-next/internal/constants"

	"gorm.io/gorm"
)

// Order order ledger root
type Order struct {
	ID               uint                    `gorm:"primarykey" json:"id"`                                        // primary key
	OrderNumber      string                  `gorm:"type:varchar(16);uniqueIndex;not null" json:"order_number"`   // YYMM + 3 digit sequence
	UserID           *uint                   `gorm:"index" json:"user_id,omitempty"`                              // nil for guest checkout
	Status           constants.OrderStatus   `gorm:"type:varchar(20);index;not null" json:"status"`               // order lifecycle
	PaymentStatus    constants.PaymentStatus `gorm:"type:varchar(20);index;not null" json:"payment_status"`       // payment lifecycle
	PaymentMethod    constants.PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`             // fixed at creation
	Gateway          constants.Gateway       `gorm:"type:varchar(20);not null" json:"gateway"`                    // adapter that took the payment
	GatewaySessionID string                  `gorm:"type:varchar(255);index" json:"gateway_session_id,omitempty"` // Stripe session id or Omise charge id
	Currency         string                  `gorm:"type:varchar(8);not null" json:"currency"`                    // ISO currency
	TotalAmount      Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`   // sum of line items
	ShippingCost     Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_cost"`  // threshold based
	Discount         Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`       // applied discount
	FinalAmount      Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"final_amount"`   // total + shipping - discount
	DiscountCode     string                  `gorm:"type:varchar(64)" json:"discount_code,omitempty"`             // code as entered
	DiscountCodeID   *uint                   `gorm:"index" json:"discount_code_id,omitempty"`                     // resolved discount code
	AdminComment     string                  `gorm:"type:text" json:"admin_comment,omitempty"`                    // back-office note
	ClientIP         string                  `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                 // checkout client
	PaidAt           *time.Time              `gorm:"index" json:"paid_at"`                                        // settlement time
	CreatedAt        time.Time               `gorm:"index" json:"created_at"`                                     // created
	UpdatedAt        time.Time               `gorm:"index" json:"updated_at"`                                     // updated
	DeletedAt        gorm.DeletedAt          `gorm:"index" json:"-"`                                              // soft delete keeps the number reserved

	CustomerInfo *CustomerInfo `gorm:"foreignKey:OrderID" json:"customer_info,omitempty"` // buyer
	ShippingInfo *ShippingInfo `gorm:"foreignKey:OrderID" json:"shipping_info,omitempty"` // recipient
	Items        []OrderItem   `gorm:"foreignKey:OrderID" json:"items,omitempty"`         // line items
	PaymentInfo  *PaymentInfo  `gorm:"foreignKey:OrderID" json:"payment_info,omitempty"`  // last known payment attempt
}

// TableName table name
func (Order) TableName() string {
	return "orders"
}
