package models

import "time"

// ShippingInfo delivery recipient and address
type ShippingInfo struct {
	ID              uint       `gorm:"primarykey" json:"id"`                             // primary key
	OrderID         uint       `gorm:"uniqueIndex;not null" json:"order_id"`             // owning order
	RecipientName   string     `gorm:"type:varchar(200);not null" json:"recipient_name"` // recipient
	Phone           string     `gorm:"type:varchar(32);not null" json:"phone"`           // recipient phone
	AddressLine     string     `gorm:"type:text;not null" json:"address_line"`           // street address
	ProvinceID      uint       `gorm:"not null;index" json:"province_id"`                // province
	AmphureID       uint       `gorm:"not null;index" json:"amphure_id"`                 // district
	TambonID        uint       `gorm:"not null;index" json:"tambon_id"`                  // sub-district
	ProvinceName    string     `gorm:"type:varchar(120)" json:"province_name"`           // display snapshot
	AmphureName     string     `gorm:"type:varchar(120)" json:"amphure_name"`            // display snapshot
	TambonName      string     `gorm:"type:varchar(120)" json:"tambon_name"`             // display snapshot
	PostalCode      string     `gorm:"type:varchar(10)" json:"postal_code"`              // zip
	ShipToRecipient bool       `gorm:"not null;default:false" json:"ship_to_recipient"`  // sentinel location in use
	DeliveryDate    *time.Time `json:"delivery_date,omitempty"`                          // requested date
	DeliveryTime    string     `gorm:"type:varchar(32)" json:"delivery_time,omitempty"`  // requested slot
	CardMessage     string     `gorm:"type:text" json:"card_message,omitempty"`          // gift card message
	CreatedAt       time.Time  `json:"created_at"`                                       // created
	UpdatedAt       time.Time  `json:"updated_at"`                                       // updated

	Province *Province `gorm:"foreignKey:ProvinceID" json:"-"` // location FK
	Amphure  *Amphure  `gorm:"foreignKey:AmphureID" json:"-"`  // location FK
	Tambon   *Tambon   `gorm:"foreignKey:TambonID" json:"-"`   // location FK
}

// TableName table name
func (ShippingInfo) TableName() string {
	return "shipping_infos"
}
