package models

import (
	"time"

	"github.com/leafbox-next/internal/constants"
)

// PendingPayment status values
const (
	PendingPaymentStatusOpen     = "open"
	PendingPaymentStatusResolved = "resolved"
)

// PendingPayment gateway event that matched no order
type PendingPayment struct {
	ID                  uint              `gorm:"primarykey" json:"id"`                                                              // primary key
	Gateway             constants.Gateway `gorm:"type:varchar(20);not null;uniqueIndex:idx_pending_gateway_ref" json:"gateway"`      // adapter
	GatewayRef          string            `gorm:"type:varchar(255);not null;uniqueIndex:idx_pending_gateway_ref" json:"gateway_ref"` // charge / session id
	TransactionID       string            `gorm:"type:varchar(255)" json:"transaction_id"`                                           // intent / charge id
	EventType           string            `gorm:"type:varchar(80)" json:"event_type"`                                                // gateway event
	Amount              Money             `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                               // gateway amount
	Currency            string            `gorm:"type:varchar(8)" json:"currency"`                                                   // gateway currency
	MetadataOrderID     string            `gorm:"type:varchar(64)" json:"metadata_order_id"`                                         // metadata as received
	MetadataOrderNumber string            `gorm:"type:varchar(32)" json:"metadata_order_number"`                                     // metadata as received
	CustomerEmail       string            `gorm:"type:varchar(255)" json:"customer_email"`                                           // payer email when known
	RawPayload          JSON              `gorm:"type:json" json:"raw_payload"`                                                      // full event
	Status              string            `gorm:"type:varchar(20);index;not null" json:"status"`                                     // open / resolved
	ResolvedOrderID     *uint             `gorm:"index" json:"resolved_order_id,omitempty"`                                          // linked order
	ResolvedAt          *time.Time        `json:"resolved_at,omitempty"`                                                             // link time
	CreatedAt           time.Time         `gorm:"index" json:"created_at"`                                                           // created
	UpdatedAt           time.Time         `json:"updated_at"`                                                                        // updated
}

// TableName table name
func (PendingPayment) TableName() string {
	return "pending_payments"
}
