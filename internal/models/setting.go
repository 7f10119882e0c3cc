package models

// Setting key/value configuration row
type Setting struct {
	Key       string `gorm:"primarykey;type:varchar(64)" json:"key"` // setting key
	ValueJSON JSON   `gorm:"type:json" json:"value"`                 // setting value
}

// TableName table name
func (Setting) TableName() string {
	return "settings"
}
