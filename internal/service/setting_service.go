package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leafbox-next/internal/cache"
	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/repository"

	"github.com/shopspring/decimal"
)

const shippingSettingCacheTTL = 10 * time.Minute

const (
	settingFieldFreeThreshold = "free_threshold"
	settingFieldFlatFee       = "flat_fee"
)

var (
	defaultFreeShippingThreshold = decimal.NewFromInt(1500)
	defaultFlatShippingFee       = decimal.NewFromInt(100)
)

// ShippingSetting persisted shipping rule
type ShippingSetting struct {
	FreeThreshold models.Money `json:"free_threshold"`
	FlatFee       models.Money `json:"flat_fee"`
}

// CostFor shipping fee for a subtotal: free at or above the threshold.
func (s ShippingSetting) CostFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(s.FreeThreshold.Decimal) {
		return decimal.Zero
	}
	return s.FlatFee.Decimal
}

// SettingService settings backed by the settings table
type SettingService struct {
	repo     repository.SettingRepository
	defaults ShippingSetting
}

// NewSettingService creates the setting service. The shipping config
// section only seeds the defaults used until an admin saves a rule.
func NewSettingService(repo repository.SettingRepository, seed config.ShippingConfig) *SettingService {
	return &SettingService{
		repo:     repo,
		defaults: shippingDefaultsFromConfig(seed),
	}
}

// GetShippingSetting the single shipping rule every pricing path reads.
func (s *SettingService) GetShippingSetting(ctx context.Context) (ShippingSetting, error) {
	if s == nil {
		return defaultShippingSetting(), nil
	}
	result, err := cache.GetOrLoad(ctx, constants.CacheKeyShipping, shippingSettingCacheTTL, func() (ShippingSetting, error) {
		setting, err := s.repo.GetByKey(constants.SettingKeyShipping)
		if err != nil || setting == nil {
			return s.defaults, err
		}
		return shippingSettingFromJSON(setting.ValueJSON, s.defaults), nil
	})
	if err != nil {
		return s.defaults, err
	}
	return result, nil
}

// UpdateShippingSetting persists a new rule and drops the cached copy.
func (s *SettingService) UpdateShippingSetting(ctx context.Context, input ShippingSetting) (ShippingSetting, error) {
	if input.FreeThreshold.IsNegative() || input.FlatFee.IsNegative() {
		return ShippingSetting{}, ErrShippingSettingBad
	}
	value := models.JSON{
		settingFieldFreeThreshold: input.FreeThreshold.String(),
		settingFieldFlatFee:       input.FlatFee.String(),
	}
	setting, err := s.repo.Upsert(constants.SettingKeyShipping, value)
	if err != nil {
		return ShippingSetting{}, err
	}
	if err := cache.Del(ctx, constants.CacheKeyShipping); err != nil {
		logger.Warnw("setting_shipping_cache_invalidate_failed", "error", err)
	}
	logger.Infow("setting_shipping_updated",
		"free_threshold", input.FreeThreshold.String(),
		"flat_fee", input.FlatFee.String(),
	)
	return shippingSettingFromJSON(setting.ValueJSON, s.defaults), nil
}

func defaultShippingSetting() ShippingSetting {
	return ShippingSetting{
		FreeThreshold: models.NewMoneyFromDecimal(defaultFreeShippingThreshold),
		FlatFee:       models.NewMoneyFromDecimal(defaultFlatShippingFee),
	}
}

func shippingDefaultsFromConfig(seed config.ShippingConfig) ShippingSetting {
	result := defaultShippingSetting()
	if d, err := parseSettingDecimal(seed.FreeThreshold); err == nil && !d.IsNegative() {
		result.FreeThreshold = models.NewMoneyFromDecimal(d)
	}
	if d, err := parseSettingDecimal(seed.FlatFee); err == nil && !d.IsNegative() {
		result.FlatFee = models.NewMoneyFromDecimal(d)
	}
	return result
}

func shippingSettingFromJSON(value models.JSON, fallback ShippingSetting) ShippingSetting {
	result := fallback
	if value == nil {
		return result
	}
	if d, err := parseSettingDecimal(value[settingFieldFreeThreshold]); err == nil && !d.IsNegative() {
		result.FreeThreshold = models.NewMoneyFromDecimal(d)
	}
	if d, err := parseSettingDecimal(value[settingFieldFlatFee]); err == nil && !d.IsNegative() {
		result.FlatFee = models.NewMoneyFromDecimal(d)
	}
	return result
}

func parseSettingDecimal(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("empty value")
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero, fmt.Errorf("empty string")
		}
		return decimal.NewFromString(trimmed)
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", raw)
	}
}
