package repository

import (
	"errors"
	"strings"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository order ledger data access
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	GetBySessionID(sessionID string) (*models.Order, error)
	LockByID(id uint) (*models.Order, error)
	LatestOrderNumberWithPrefix(prefix string) (string, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	UpdateFieldsIfPaymentStatus(id uint, current constants.PaymentStatus, updates map[string]interface{}) (bool, error)
	BackfillSessionID(id uint, sessionID string) (bool, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	DeleteCascade(id uint) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM implementation
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates the order repository
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx binds a transaction
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withChildren(query *gorm.DB) *gorm.DB {
	return query.Preload("CustomerInfo").
		Preload("ShippingInfo").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("PaymentInfo")
}

// Create inserts the order row and its children. Callers wrap it in a
// transaction so that the whole aggregate commits together.
func (r *GormOrderRepository) Create(order *models.Order) error {
	if err := r.db.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if order.CustomerInfo != nil {
		order.CustomerInfo.OrderID = order.ID
		if err := r.db.Create(order.CustomerInfo).Error; err != nil {
			return err
		}
	}
	if order.ShippingInfo != nil {
		order.ShippingInfo.OrderID = order.ID
		if err := r.db.Omit(clause.Associations).Create(order.ShippingInfo).Error; err != nil {
			return err
		}
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if err := r.db.Create(&order.Items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID loads an order with its children
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	return r.first(r.db.Where("id = ?", id))
}

// GetByOrderNumber loads an order by its human-facing number
func (r *GormOrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, nil
	}
	return r.first(r.db.Where("order_number = ?", orderNumber))
}

// GetBySessionID loads an order by its stored gateway session/charge id
func (r *GormOrderRepository) GetBySessionID(sessionID string) (*models.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil
	}
	return r.first(r.db.Where("gateway_session_id = ?", sessionID))
}

// LockByID reads the bare order row with a row lock. Used inside a
// transaction to serialize settlements of the same order.
func (r *GormOrderRepository) LockByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) first(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := r.withChildren(query).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// LatestOrderNumberWithPrefix returns the greatest order number starting
// with prefix, soft-deleted rows included so numbers are never reused.
func (r *GormOrderRepository) LatestOrderNumberWithPrefix(prefix string) (string, error) {
	var numbers []string
	if err := r.db.Unscoped().Model(&models.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number desc").
		Limit(1).
		Pluck("order_number", &numbers).Error; err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

// UpdateFields updates columns of a single order keyed by id
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateFieldsIfPaymentStatus applies updates only while the order still
// has payment status current. It reports whether a row was changed.
func (r *GormOrderRepository) UpdateFieldsIfPaymentStatus(id uint, current constants.PaymentStatus, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, current).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// BackfillSessionID stores sessionID when the order has none yet. It
// reports whether a row was changed.
func (r *GormOrderRepository) BackfillSessionID(id uint, sessionID string) (bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false, nil
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND (gateway_session_id IS NULL OR gateway_session_id = '')", id).
		Update("gateway_session_id", sessionID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListAdmin admin order list
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{})

	if filter.Status != "" {
		query = query.Where("orders.status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("orders.payment_status = ?", filter.PaymentStatus)
	}
	if filter.Gateway != "" {
		query = query.Where("orders.gateway = ?", filter.Gateway)
	}
	if filter.OrderNumber != "" {
		query = query.Where("orders.order_number = ?", filter.OrderNumber)
	}
	if filter.UserID != nil {
		query = query.Where("orders.user_id = ?", *filter.UserID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("orders.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("orders.created_at <= ?", *filter.CreatedTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Joins("LEFT JOIN customer_infos ON customer_infos.order_id = orders.id").
			Scopes(searchScope(search,
				"orders.order_number",
				"customer_infos.email",
				"customer_infos.phone",
				"customer_infos.first_name",
			))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(pageScope(filter.Page, filter.PageSize))
	if err := query.Preload("CustomerInfo").Preload("PaymentInfo").
		Order("orders.id desc").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// DeleteCascade removes the children first and then soft-deletes the order.
func (r *GormOrderRepository) DeleteCascade(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		children := []interface{}{
			&models.OrderItem{},
			&models.PaymentInfo{},
			&models.ShippingInfo{},
			&models.CustomerInfo{},
		}
		for _, child := range children {
			if err := tx.Where("order_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&models.Order{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

