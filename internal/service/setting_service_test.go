package service

import (
	"context"
	"errors"
	"testing"

	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/repository"

	"github.com/shopspring/decimal"
)

func TestShippingSettingDefaults(t *testing.T) {
	env := setupServiceTest(t)
	setting, err := env.settings.GetShippingSetting(context.Background())
	if err != nil {
		t.Fatalf("GetShippingSetting error: %v", err)
	}
	if !setting.FreeThreshold.Equal(decimal.NewFromInt(1500)) || !setting.FlatFee.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected defaults: %+v", setting)
	}
	if !setting.CostFor(decimal.NewFromInt(1500)).IsZero() {
		t.Fatalf("threshold itself ships free")
	}
	if !setting.CostFor(decimal.RequireFromString("1499.99")).Equal(decimal.NewFromInt(100)) {
		t.Fatalf("below threshold pays the flat fee")
	}
}

func TestShippingSettingSeededFromConfig(t *testing.T) {
	env := setupServiceTest(t)
	svc := NewSettingService(repository.NewSettingRepository(env.db), config.ShippingConfig{FreeThreshold: "999", FlatFee: "bogus"})
	setting, err := svc.GetShippingSetting(context.Background())
	if err != nil {
		t.Fatalf("GetShippingSetting error: %v", err)
	}
	if !setting.FreeThreshold.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("expected seeded threshold, got %s", setting.FreeThreshold)
	}
	if !setting.FlatFee.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected unparsable fee to keep default, got %s", setting.FlatFee)
	}
}

func TestUpdateShippingSetting(t *testing.T) {
	env := setupServiceTest(t)
	updated, err := env.settings.UpdateShippingSetting(context.Background(), ShippingSetting{
		FreeThreshold: models.NewMoneyFromInt(2500),
		FlatFee:       models.NewMoneyFromDecimal(decimal.RequireFromString("79.50")),
	})
	if err != nil {
		t.Fatalf("UpdateShippingSetting error: %v", err)
	}
	if !updated.FlatFee.Equal(decimal.RequireFromString("79.5")) {
		t.Fatalf("unexpected fee: %s", updated.FlatFee)
	}
	reloaded, err := env.settings.GetShippingSetting(context.Background())
	if err != nil {
		t.Fatalf("GetShippingSetting error: %v", err)
	}
	if !reloaded.FreeThreshold.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("expected persisted threshold, got %s", reloaded.FreeThreshold)
	}

	_, err = env.settings.UpdateShippingSetting(context.Background(), ShippingSetting{
		FreeThreshold: models.NewMoneyFromInt(-1),
		FlatFee:       models.NewMoneyFromInt(10),
	})
	if !errors.Is(err, ErrShippingSettingBad) {
		t.Fatalf("expected ErrShippingSettingBad, got %v", err)
	}
}
