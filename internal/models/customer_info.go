package models

import "time"

// CustomerInfo buyer identity and contact
type CustomerInfo struct {
	ID        uint      `gorm:"primarykey" json:"id"`                         // primary key
	OrderID   uint      `gorm:"uniqueIndex;not null" json:"order_id"`         // owning order
	FirstName string    `gorm:"type:varchar(100);not null" json:"first_name"` // given name
	LastName  string    `gorm:"type:varchar(100)" json:"last_name"`           // family name
	Email     string    `gorm:"type:varchar(255);index" json:"email"`         // receipt address
	Phone     string    `gorm:"type:varchar(32);not null" json:"phone"`       // contact phone
	Note      string    `gorm:"type:text" json:"note,omitempty"`              // customer note
	CreatedAt time.Time `json:"created_at"`                                   // created
	UpdatedAt time.Time `json:"updated_at"`                                   // updated
}

// TableName table name
func (CustomerInfo) TableName() string {
	return "customer_infos"
}

// FullName display name
func (c CustomerInfo) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
