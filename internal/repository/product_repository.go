package repository

import (
	"errors"
	"strings"

	"github.com/leafbox-next/internal/models"

	"gorm.io/gorm"
)

// ProductRepository catalog lookups used when pricing a checkout
type ProductRepository interface {
	ListByIDs(ids []uint) ([]models.Product, error)
	GetByName(name string) (*models.Product, error)
	Create(product *models.Product) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM implementation
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates the product repository
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx binds a transaction
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// ListByIDs loads every product in ids, inactive ones included so the
// caller can tell "unknown" from "not for sale". Missing ids are absent.
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.db.Where("id IN ?", ids).Order("id asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetByName exact name lookup; nil when absent
func (r *GormProductRepository) GetByName(name string) (*models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var product models.Product
	err := r.db.Where("name = ?", name).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a product
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}
