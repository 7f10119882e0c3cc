package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/leafbox-next/internal/constants"

	"github.com/glebarez/sqlite" // pure Go SQLite driver (modernc.org/sqlite)
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DBPoolConfig connection pool settings
type DBPoolConfig struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
	ConnMaxIdleTimeSeconds int
}

// OpenDB opens a database handle. The handle is owned by the caller and
// injected into repositories; there is no package-level connection.
func OpenDB(driver, dsn string, pool DBPoolConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	applyDBPool(sqlDB, pool)
	return db, nil
}

// CloseDB releases the underlying pool.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applyDBPool(sqlDB *sql.DB, pool DBPoolConfig) {
	if sqlDB == nil {
		return
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
}

// AutoMigrate migrates every table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Province{},
		&Amphure{},
		&Tambon{},
		&Product{},
		&DiscountCode{},
		&Setting{},
		&Order{},
		&CustomerInfo{},
		&ShippingInfo{},
		&OrderItem{},
		&PaymentInfo{},
		&PendingPayment{},
	)
}

// SeedLocations makes sure the ship-to-recipient sentinel rows exist.
// Existing rows are left untouched.
func SeedLocations(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		province := Province{ID: constants.ShipToRecipientProvinceID, NameTH: constants.ShipToRecipientLabel, NameEN: constants.ShipToRecipientLabel}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&province).Error; err != nil {
			return err
		}
		amphure := Amphure{ID: constants.ShipToRecipientAmphureID, ProvinceID: province.ID, NameTH: constants.ShipToRecipientLabel, NameEN: constants.ShipToRecipientLabel}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&amphure).Error; err != nil {
			return err
		}
		tambon := Tambon{ID: constants.ShipToRecipientTambonID, AmphureID: amphure.ID, NameTH: constants.ShipToRecipientLabel, NameEN: constants.ShipToRecipientLabel}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tambon).Error
	})
}
