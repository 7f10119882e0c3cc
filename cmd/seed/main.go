package main

import (
	"context"
	"errors"
	"flag"

	"github.com/leafbox-next/internal/app"
	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/repository"
	"github.com/leafbox-next/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	var withShipping bool
	flag.BoolVar(&withShipping, "shipping", true, "persist the configured shipping rule")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	cfg.Database.SeedLocations = true
	db, err := app.OpenDatabase(cfg)
	if err != nil {
		stdLog.Fatalf("open database failed: %v", err)
	}
	defer func() { _ = models.CloseDB(db) }()

	seedLocations(db)
	seedProducts(db)
	seedDiscountCodes(db)

	if withShipping {
		settings := service.NewSettingService(repository.NewSettingRepository(db), cfg.Shipping)
		current, err := settings.GetShippingSetting(context.Background())
		if err != nil {
			stdLog.Fatalf("read shipping setting failed: %v", err)
		}
		if _, err := settings.UpdateShippingSetting(context.Background(), current); err != nil {
			stdLog.Fatalf("save shipping setting failed: %v", err)
		}
	}
	logger.Infow("seed_done")
}

func seedLocations(db *gorm.DB) {
	province := models.Province{ID: 10, NameTH: "กรุงเทพมหานคร", NameEN: "Bangkok"}
	amphures := []models.Amphure{
		{ID: 1001, ProvinceID: 10, NameTH: "พระนคร", NameEN: "Phra Nakhon"},
		{ID: 1007, ProvinceID: 10, NameTH: "ปทุมวัน", NameEN: "Pathum Wan"},
	}
	tambons := []models.Tambon{
		{ID: 100101, AmphureID: 1001, NameTH: "พระบรมมหาราชวัง", NameEN: "Phra Borom Maha Ratchawang", ZipCode: "10200"},
		{ID: 100701, AmphureID: 1007, NameTH: "รองเมือง", NameEN: "Rong Mueang", ZipCode: "10330"},
		{ID: 100704, AmphureID: 1007, NameTH: "ลุมพินี", NameEN: "Lumphini", ZipCode: "10330"},
	}
	firstOrCreate(db, "province", &models.Province{}, province.ID, &province)
	for i := range amphures {
		firstOrCreate(db, "amphure", &models.Amphure{}, amphures[i].ID, &amphures[i])
	}
	for i := range tambons {
		firstOrCreate(db, "tambon", &models.Tambon{}, tambons[i].ID, &tambons[i])
	}
}

func seedProducts(db *gorm.DB) {
	products := []models.Product{
		{Name: "Monstera Deliciosa", Price: models.NewMoneyFromInt(650), IsActive: true},
		{Name: "Fiddle Leaf Fig", Price: models.NewMoneyFromInt(1600), IsActive: true},
		{Name: "Snake Plant", Price: models.NewMoneyFromInt(390), IsActive: true},
		{Name: "Golden Pothos", Price: models.NewMoneyFromDecimal(decimal.RequireFromString("249.50")), IsActive: true},
	}
	repo := repository.NewProductRepository(db)
	for i := range products {
		existing, err := repo.GetByName(products[i].Name)
		switch {
		case err != nil:
			logger.Errorw("seed_product_lookup_failed", "name", products[i].Name, "error", err)
		case existing != nil:
			logger.Infow("seed_product_exists", "name", products[i].Name, "id", existing.ID)
		default:
			if err := repo.Create(&products[i]); err != nil {
				logger.Errorw("seed_product_failed", "name", products[i].Name, "error", err)
				continue
			}
			logger.Infow("seed_product_created", "name", products[i].Name, "id", products[i].ID)
		}
	}
}

func seedDiscountCodes(db *gorm.DB) {
	codes := []models.DiscountCode{
		{Code: "WELCOME100", Type: models.DiscountTypeFixed, Value: models.NewMoneyFromInt(100), MinAmount: models.NewMoneyFromInt(500), IsActive: true},
		{Code: "GREEN10", Type: models.DiscountTypePercent, Value: models.NewMoneyFromInt(10), MaxDiscount: models.NewMoneyFromInt(300), UsageLimit: 100, IsActive: true},
	}
	for i := range codes {
		var existing models.DiscountCode
		err := db.Where("code = ?", codes[i].Code).First(&existing).Error
		if err == nil {
			logger.Infow("seed_discount_exists", "code", codes[i].Code)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Errorw("seed_discount_lookup_failed", "code", codes[i].Code, "error", err)
			continue
		}
		if err := db.Create(&codes[i]).Error; err != nil {
			logger.Errorw("seed_discount_failed", "code", codes[i].Code, "error", err)
			continue
		}
		logger.Infow("seed_discount_created", "code", codes[i].Code)
	}
}

func firstOrCreate(db *gorm.DB, kind string, probe interface{}, id interface{}, row interface{}) {
	err := db.First(probe, id).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Errorw("seed_location_lookup_failed", "kind", kind, "id", id, "error", err)
		return
	}
	if err := db.Create(row).Error; err != nil {
		logger.Errorw("seed_location_failed", "kind", kind, "id", id, "error", err)
		return
	}
	logger.Infow("seed_location_created", "kind", kind, "id", id)
}
