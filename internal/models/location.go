package models

// Province location lookup
type Province struct {
	ID     uint   `gorm:"primarykey" json:"id"`                      // primary key
	NameTH string `gorm:"type:varchar(120);not null" json:"name_th"` // Thai name
	NameEN string `gorm:"type:varchar(120)" json:"name_en"`          // English name
}

// TableName table name
func (Province) TableName() string {
	return "provinces"
}

// Amphure district lookup
type Amphure struct {
	ID         uint   `gorm:"primarykey" json:"id"`                      // primary key
	ProvinceID uint   `gorm:"index;not null" json:"province_id"`         // parent province
	NameTH     string `gorm:"type:varchar(120);not null" json:"name_th"` // Thai name
	NameEN     string `gorm:"type:varchar(120)" json:"name_en"`          // English name
}

// TableName table name
func (Amphure) TableName() string {
	return "amphures"
}

// Tambon sub-district lookup
type Tambon struct {
	ID        uint   `gorm:"primarykey" json:"id"`                      // primary key
	AmphureID uint   `gorm:"index;not null" json:"amphure_id"`          // parent district
	NameTH    string `gorm:"type:varchar(120);not null" json:"name_th"` // Thai name
	NameEN    string `gorm:"type:varchar(120)" json:"name_en"`          // English name
	ZipCode   string `gorm:"type:varchar(10)" json:"zip_code"`          // postal code
}

// TableName table name
func (Tambon) TableName() string {
	return "tambons"
}
