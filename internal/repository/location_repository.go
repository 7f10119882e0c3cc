package repository

import (
	"errors"

	"github.com/leafbox-next/internal/models"

	"gorm.io/gorm"
)

// LocationRepository province/amphure/tambon lookups
type LocationRepository interface {
	ListProvinces() ([]models.Province, error)
	ListAmphures(provinceID uint) ([]models.Amphure, error)
	ListTambons(amphureID uint) ([]models.Tambon, error)
	GetProvince(id uint) (*models.Province, error)
	GetAmphure(id uint) (*models.Amphure, error)
	GetTambon(id uint) (*models.Tambon, error)
	WithTx(tx *gorm.DB) LocationRepository
}

// GormLocationRepository GORM implementation
type GormLocationRepository struct {
	db *gorm.DB
}

// NewLocationRepository creates the location repository
func NewLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// WithTx binds a transaction
func (r *GormLocationRepository) WithTx(tx *gorm.DB) LocationRepository {
	if tx == nil {
		return r
	}
	return &GormLocationRepository{db: tx}
}

// ListProvinces lists provinces
func (r *GormLocationRepository) ListProvinces() ([]models.Province, error) {
	var rows []models.Province
	if err := r.db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAmphures lists districts of a province
func (r *GormLocationRepository) ListAmphures(provinceID uint) ([]models.Amphure, error) {
	var rows []models.Amphure
	if err := r.db.Where("province_id = ?", provinceID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListTambons lists sub-districts of a district
func (r *GormLocationRepository) ListTambons(amphureID uint) ([]models.Tambon, error) {
	var rows []models.Tambon
	if err := r.db.Where("amphure_id = ?", amphureID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetProvince loads a province
func (r *GormLocationRepository) GetProvince(id uint) (*models.Province, error) {
	var row models.Province
	return findLocation(r.db, &row, id)
}

// GetAmphure loads a district
func (r *GormLocationRepository) GetAmphure(id uint) (*models.Amphure, error) {
	var row models.Amphure
	return findLocation(r.db, &row, id)
}

// GetTambon loads a sub-district
func (r *GormLocationRepository) GetTambon(id uint) (*models.Tambon, error) {
	var row models.Tambon
	return findLocation(r.db, &row, id)
}

func findLocation[T any](db *gorm.DB, row *T, id uint) (*T, error) {
	if id == 0 {
		return nil, nil
	}
	if err := db.First(row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}
