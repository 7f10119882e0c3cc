package repository

import (
	"errors"
	"strings"

	"github.com/leafbox-next/internal/models"

	"gorm.io/gorm"
)

// DiscountRepository discount code data access
type DiscountRepository interface {
	GetByCode(code string) (*models.DiscountCode, error)
	GetByID(id uint) (*models.DiscountCode, error)
	Create(code *models.DiscountCode) error
	IncrementUsedCount(id uint, delta int) error
	WithTx(tx *gorm.DB) DiscountRepository
}

// GormDiscountRepository GORM implementation
type GormDiscountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository creates the discount repository
func NewDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

// WithTx binds a transaction
func (r *GormDiscountRepository) WithTx(tx *gorm.DB) DiscountRepository {
	if tx == nil {
		return r
	}
	return &GormDiscountRepository{db: tx}
}

// GetByCode loads a code, case-insensitive
func (r *GormDiscountRepository) GetByCode(code string) (*models.DiscountCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	var row models.DiscountCode
	if err := r.db.Where("code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByID loads a code by id
func (r *GormDiscountRepository) GetByID(id uint) (*models.DiscountCode, error) {
	var row models.DiscountCode
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Create inserts a discount code
func (r *GormDiscountRepository) Create(code *models.DiscountCode) error {
	code.Code = strings.ToUpper(strings.TrimSpace(code.Code))
	return r.db.Create(code).Error
}

// IncrementUsedCount increments in place at the storage layer
func (r *GormDiscountRepository) IncrementUsedCount(id uint, delta int) error {
	if delta == 0 {
		delta = 1
	}
	return r.db.Model(&models.DiscountCode{}).
		Where("id = ?", id).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", delta)).Error
}
