package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/models"

	"gorm.io/gorm"
)

func TestPendingPaymentCreateIfAbsentIsIdempotent(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewPendingPaymentRepository(db)

	newRow := func() *models.PendingPayment {
		return &models.PendingPayment{
			Gateway:             constants.GatewayStripe,
			GatewayRef:          "cs_test_orphan",
			TransactionID:       "pi_orphan",
			EventType:           constants.StripeEventCheckoutCompleted,
			Amount:              models.NewMoneyFromInt(1300),
			Currency:            constants.CurrencyTHB,
			MetadataOrderNumber: "2501999",
		}
	}
	created, err := repo.CreateIfAbsent(newRow())
	if err != nil || !created {
		t.Fatalf("first insert want created, got created=%v err=%v", created, err)
	}
	created, err = repo.CreateIfAbsent(newRow())
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if created {
		t.Fatalf("second insert must be a no-op")
	}

	rows, total, err := repo.List(PendingPaymentListFilter{Status: models.PendingPaymentStatusOpen})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("want exactly one pending row, got %d", total)
	}

	if err := repo.MarkResolved(rows[0].ID, 42, time.Now()); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if err := repo.MarkResolved(rows[0].ID, 42, time.Now()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("resolving twice want not found, got %v", err)
	}
}

func TestDiscountIncrementUsedCountInPlace(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewDiscountRepository(db)
	code := &models.DiscountCode{
		Code:     "spring10",
		Type:     models.DiscountTypePercent,
		Value:    models.NewMoneyFromInt(10),
		IsActive: true,
	}
	if err := repo.Create(code); err != nil {
		t.Fatalf("create discount failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := repo.IncrementUsedCount(code.ID, 1); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}
	loaded, err := repo.GetByCode("SPRING10")
	if err != nil || loaded == nil {
		t.Fatalf("load discount failed: %v", err)
	}
	if loaded.UsedCount != 3 {
		t.Fatalf("want used_count 3 got %d", loaded.UsedCount)
	}
}

func TestSettingUpsertOverwrites(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewSettingRepository(db)
	if _, err := repo.Upsert(constants.SettingKeyShipping, models.JSON{"free_threshold": "1500"}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if _, err := repo.Upsert(constants.SettingKeyShipping, models.JSON{"free_threshold": "2000"}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	setting, err := repo.GetByKey(constants.SettingKeyShipping)
	if err != nil || setting == nil {
		t.Fatalf("load setting failed: %v", err)
	}
	if setting.ValueJSON["free_threshold"] != "2000" {
		t.Fatalf("unexpected value: %v", setting.ValueJSON)
	}
}
