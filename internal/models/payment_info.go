package models

import (
	"time"

	"github.com/leafbox-next/internal/constants"
)

// PaymentInfo last known payment attempt, one row per order
type PaymentInfo struct {
	ID            uint                    `gorm:"primarykey" json:"id"`                                // primary key
	OrderID       uint                    `gorm:"uniqueIndex;not null" json:"order_id"`                // owning order
	Gateway       constants.Gateway       `gorm:"type:varchar(20);not null" json:"gateway"`            // adapter
	Method        constants.PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`             // resolved method
	TransactionID string                  `gorm:"type:varchar(255);index" json:"transaction_id"`       // gateway transaction / intent id
	Amount        Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // settled or claimed amount
	Status        constants.PaymentStatus `gorm:"type:varchar(20);index;not null" json:"status"`       // payment status snapshot
	PaymentDate   *time.Time              `json:"payment_date"`                                        // settlement or slip time
	SlipURL       string                  `gorm:"type:text" json:"slip_url,omitempty"`                 // uploaded slip
	BankReference string                  `gorm:"type:varchar(255)" json:"bank_reference,omitempty"`   // raw bank reference
	EventType     string                  `gorm:"type:varchar(80)" json:"event_type,omitempty"`        // last gateway event
	RawPayload    JSON                    `gorm:"type:json" json:"raw_payload,omitempty"`              // last gateway payload
	CreatedAt     time.Time               `json:"created_at"`                                          // created
	UpdatedAt     time.Time               `json:"updated_at"`                                          // updated
}

// TableName table name
func (PaymentInfo) TableName() string {
	return "payment_infos"
}

// AlreadySettled reports whether this row already records the given
// confirmed transaction of the given gateway.
func (p *PaymentInfo) AlreadySettled(gateway constants.Gateway, transactionID string) bool {
	if p == nil || transactionID == "" {
		return false
	}
	return p.Gateway == gateway &&
		p.TransactionID == transactionID &&
		p.Status == constants.PaymentStatusConfirmed
}
