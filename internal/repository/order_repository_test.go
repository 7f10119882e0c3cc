package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if err := models.SeedLocations(db); err != nil {
		t.Fatalf("seed locations failed: %v", err)
	}
	return db
}

func newTestOrder(number string) *models.Order {
	return &models.Order{
		OrderNumber:   number,
		Status:        constants.OrderStatusPending,
		PaymentStatus: constants.PaymentStatusPending,
		PaymentMethod: constants.PaymentMethodBankTransfer,
		Gateway:       constants.GatewayManual,
		Currency:      constants.CurrencyTHB,
		TotalAmount:   models.NewMoneyFromInt(1200),
		ShippingCost:  models.NewMoneyFromInt(100),
		FinalAmount:   models.NewMoneyFromInt(1300),
		CustomerInfo:  &models.CustomerInfo{FirstName: "Somchai", Email: "somchai@example.com", Phone: "0812345678"},
		ShippingInfo: &models.ShippingInfo{
			RecipientName: "Somsri",
			Phone:         "0898765432",
			AddressLine:   "99 Sukhumvit",
			ProvinceID:    constants.ShipToRecipientProvinceID,
			AmphureID:     constants.ShipToRecipientAmphureID,
			TambonID:      constants.ShipToRecipientTambonID,
		},
		Items: []models.OrderItem{
			{ProductID: 1, ProductName: "Monstera", Quantity: 2, UnitPrice: models.NewMoneyFromInt(600), TotalPrice: models.NewMoneyFromInt(1200)},
		},
	}
}

func TestOrderRepositoryCreateWritesChildren(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)

	order := newTestOrder("2501001")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	loaded, err := repo.GetByOrderNumber("2501001")
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if loaded == nil {
		t.Fatalf("expected order")
	}
	if loaded.CustomerInfo == nil || loaded.CustomerInfo.OrderID != order.ID {
		t.Fatalf("customer info not linked: %+v", loaded.CustomerInfo)
	}
	if loaded.ShippingInfo == nil || loaded.ShippingInfo.RecipientName != "Somsri" {
		t.Fatalf("shipping info not linked: %+v", loaded.ShippingInfo)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", loaded.Items)
	}
	if !loaded.FinalAmount.Equal(models.NewMoneyFromInt(1300).Decimal) {
		t.Fatalf("final amount mismatch: %s", loaded.FinalAmount)
	}
}

func TestOrderRepositoryDuplicateOrderNumberIsUniqueViolation(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)

	if err := repo.Create(newTestOrder("2501001")); err != nil {
		t.Fatalf("create first order failed: %v", err)
	}
	err := repo.Create(newTestOrder("2501001"))
	if err == nil {
		t.Fatalf("expected duplicate error")
	}
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestOrderRepositoryLatestOrderNumberIncludesDeleted(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)

	for _, number := range []string{"2501001", "2501002", "2412009"} {
		if err := repo.Create(newTestOrder(number)); err != nil {
			t.Fatalf("create order %s failed: %v", number, err)
		}
	}
	latest, err := repo.GetByOrderNumber("2501002")
	if err != nil || latest == nil {
		t.Fatalf("load latest failed: %v", err)
	}
	if err := repo.DeleteCascade(latest.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := repo.LatestOrderNumberWithPrefix("2501")
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if got != "2501002" {
		t.Fatalf("want 2501002 got %s", got)
	}
	empty, err := repo.LatestOrderNumberWithPrefix("2502")
	if err != nil {
		t.Fatalf("latest empty failed: %v", err)
	}
	if empty != "" {
		t.Fatalf("want empty got %s", empty)
	}
}

func TestOrderRepositoryBackfillSessionIDOnlyWhenEmpty(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	order := newTestOrder("2501001")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	changed, err := repo.BackfillSessionID(order.ID, "cs_test_1")
	if err != nil || !changed {
		t.Fatalf("first backfill want changed, got changed=%v err=%v", changed, err)
	}
	changed, err = repo.BackfillSessionID(order.ID, "cs_test_2")
	if err != nil || changed {
		t.Fatalf("second backfill must not overwrite, got changed=%v err=%v", changed, err)
	}
	found, err := repo.GetBySessionID("cs_test_1")
	if err != nil || found == nil || found.ID != order.ID {
		t.Fatalf("lookup by session failed: %+v %v", found, err)
	}
}

func TestOrderRepositoryLockByIDInsideTransaction(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	order := newTestOrder("2501002")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).LockByID(order.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.OrderNumber != "2501002" {
			t.Fatalf("unexpected locked row: %+v", locked)
		}
		if locked.CustomerInfo != nil || len(locked.Items) != 0 {
			t.Fatalf("lock must read the bare row")
		}
		missing, err := repo.WithTx(tx).LockByID(order.ID + 100)
		if err != nil {
			return err
		}
		if missing != nil {
			t.Fatalf("want nil for missing order, got %+v", missing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func TestOrderRepositoryDeleteCascadeRemovesChildren(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	order := newTestOrder("2501001")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payments := NewPaymentInfoRepository(db)
	if err := payments.UpsertByOrderID(&models.PaymentInfo{
		OrderID: order.ID,
		Gateway: constants.GatewayManual,
		Method:  constants.PaymentMethodBankTransfer,
		Status:  constants.PaymentStatusPending,
	}); err != nil {
		t.Fatalf("upsert payment failed: %v", err)
	}

	if err := repo.DeleteCascade(order.ID); err != nil {
		t.Fatalf("delete cascade failed: %v", err)
	}
	for name, model := range map[string]interface{}{
		"items":    &models.OrderItem{},
		"payment":  &models.PaymentInfo{},
		"shipping": &models.ShippingInfo{},
		"customer": &models.CustomerInfo{},
	} {
		var count int64
		if err := db.Model(model).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
			t.Fatalf("count %s failed: %v", name, err)
		}
		if count != 0 {
			t.Fatalf("%s rows remain: %d", name, count)
		}
	}
	if got, _ := repo.GetByID(order.ID); got != nil {
		t.Fatalf("order should be hidden after delete")
	}
	if err := repo.DeleteCascade(order.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second delete want not found, got %v", err)
	}
}

func TestOrderRepositoryListAdminSearch(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	first := newTestOrder("2501001")
	second := newTestOrder("2501002")
	second.CustomerInfo.Email = "other@example.com"
	second.Status = constants.OrderStatusPaid
	for _, order := range []*models.Order{first, second} {
		if err := repo.Create(order); err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	rows, total, err := repo.ListAdmin(OrderListFilter{Search: "other@", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].OrderNumber != "2501002" {
		t.Fatalf("unexpected search result total=%d rows=%+v", total, rows)
	}

	rows, total, err = repo.ListAdmin(OrderListFilter{Status: string(constants.OrderStatusPending)})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if total != 1 || rows[0].OrderNumber != "2501001" {
		t.Fatalf("unexpected status filter result total=%d", total)
	}
}

func TestUpdateFieldsIfPaymentStatusSkipsSettledOrder(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	order := newTestOrder("2604010")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := repo.UpdateFields(order.ID, map[string]interface{}{"payment_status": constants.PaymentStatusConfirmed}); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	changed, err := repo.UpdateFieldsIfPaymentStatus(order.ID, constants.PaymentStatusPending, map[string]interface{}{
		"payment_status": constants.PaymentStatusRejected,
	})
	if err != nil || changed {
		t.Fatalf("expected no change on a confirmed order, changed=%v err=%v", changed, err)
	}
	stored, _ := repo.GetByID(order.ID)
	if stored.PaymentStatus != constants.PaymentStatusConfirmed {
		t.Fatalf("confirmed status overwritten: %s", stored.PaymentStatus)
	}

	changed, err = repo.UpdateFieldsIfPaymentStatus(order.ID, constants.PaymentStatusConfirmed, map[string]interface{}{
		"admin_comment": "checked",
	})
	if err != nil || !changed {
		t.Fatalf("expected matching status to update, changed=%v err=%v", changed, err)
	}
}
