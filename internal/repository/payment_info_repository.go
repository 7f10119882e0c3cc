package repository

import (
	"errors"

	"github.com/leafbox-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentInfoRepository per-order payment snapshot data access
type PaymentInfoRepository interface {
	GetByOrderID(orderID uint) (*models.PaymentInfo, error)
	UpsertByOrderID(info *models.PaymentInfo) error
	WithTx(tx *gorm.DB) PaymentInfoRepository
}

// GormPaymentInfoRepository GORM implementation
type GormPaymentInfoRepository struct {
	db *gorm.DB
}

// NewPaymentInfoRepository creates the payment info repository
func NewPaymentInfoRepository(db *gorm.DB) *GormPaymentInfoRepository {
	return &GormPaymentInfoRepository{db: db}
}

// WithTx binds a transaction
func (r *GormPaymentInfoRepository) WithTx(tx *gorm.DB) PaymentInfoRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentInfoRepository{db: tx}
}

// GetByOrderID loads the snapshot of an order
func (r *GormPaymentInfoRepository) GetByOrderID(orderID uint) (*models.PaymentInfo, error) {
	var info models.PaymentInfo
	if err := r.db.Where("order_id = ?", orderID).First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

// UpsertByOrderID writes the snapshot, relying on the unique order_id
// index so concurrent writers converge on one row.
func (r *GormPaymentInfoRepository) UpsertByOrderID(info *models.PaymentInfo) error {
	if info == nil || info.OrderID == 0 {
		return errors.New("payment info requires an order id")
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"gateway",
			"method",
			"transaction_id",
			"amount",
			"status",
			"payment_date",
			"slip_url",
			"bank_reference",
			"event_type",
			"raw_payload",
			"updated_at",
		}),
	}).Create(info).Error; err != nil {
		return err
	}
	if info.ID == 0 {
		stored, err := r.GetByOrderID(info.OrderID)
		if err != nil {
			return err
		}
		if stored != nil {
			info.ID = stored.ID
		}
	}
	return nil
}
