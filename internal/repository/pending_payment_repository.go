package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/leafbox-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PendingPaymentRepository unmatched gateway event data access
type PendingPaymentRepository interface {
	CreateIfAbsent(row *models.PendingPayment) (bool, error)
	GetByID(id uint) (*models.PendingPayment, error)
	List(filter PendingPaymentListFilter) ([]models.PendingPayment, int64, error)
	MarkResolved(id uint, orderID uint, at time.Time) error
	WithTx(tx *gorm.DB) PendingPaymentRepository
}

// GormPendingPaymentRepository GORM implementation
type GormPendingPaymentRepository struct {
	db *gorm.DB
}

// NewPendingPaymentRepository creates the pending payment repository
func NewPendingPaymentRepository(db *gorm.DB) *GormPendingPaymentRepository {
	return &GormPendingPaymentRepository{db: db}
}

// WithTx binds a transaction
func (r *GormPendingPaymentRepository) WithTx(tx *gorm.DB) PendingPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPendingPaymentRepository{db: tx}
}

// CreateIfAbsent inserts row unless (gateway, gateway_ref) is already
// stored. It reports whether a new row was written.
func (r *GormPendingPaymentRepository) CreateIfAbsent(row *models.PendingPayment) (bool, error) {
	if row == nil || strings.TrimSpace(row.GatewayRef) == "" {
		return false, errors.New("pending payment requires a gateway reference")
	}
	if row.Status == "" {
		row.Status = models.PendingPaymentStatusOpen
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gateway"}, {Name: "gateway_ref"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByID loads a pending payment
func (r *GormPendingPaymentRepository) GetByID(id uint) (*models.PendingPayment, error) {
	var row models.PendingPayment
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// List pending payment list
func (r *GormPendingPaymentRepository) List(filter PendingPaymentListFilter) ([]models.PendingPayment, int64, error) {
	var rows []models.PendingPayment
	query := r.db.Model(&models.PendingPayment{})
	if filter.Gateway != "" {
		query = query.Where("gateway = ?", filter.Gateway)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = query.Scopes(searchScope(filter.Search,
		"gateway_ref",
		"transaction_id",
		"metadata_order_number",
		"customer_email",
	))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(pageScope(filter.Page, filter.PageSize))
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// MarkResolved links an open row to an order
func (r *GormPendingPaymentRepository) MarkResolved(id uint, orderID uint, at time.Time) error {
	result := r.db.Model(&models.PendingPayment{}).
		Where("id = ? AND status = ?", id, models.PendingPaymentStatusOpen).
		Updates(map[string]interface{}{
			"status":            models.PendingPaymentStatusResolved,
			"resolved_order_id": orderID,
			"resolved_at":       at,
			"updated_at":        at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
