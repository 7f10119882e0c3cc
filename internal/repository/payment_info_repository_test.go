package repository

import (
	"testing"
	"time"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/models"
)

func TestPaymentInfoUpsertKeepsSingleRow(t *testing.T) {
	db := setupRepositoryTestDB(t)
	orders := NewOrderRepository(db)
	order := newTestOrder("2501001")
	if err := orders.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	repo := NewPaymentInfoRepository(db)

	first := &models.PaymentInfo{
		OrderID: order.ID,
		Gateway: constants.GatewayManual,
		Method:  constants.PaymentMethodBankTransfer,
		Amount:  models.NewMoneyFromInt(1300),
		Status:  constants.PaymentStatusPending,
		SlipURL: "https://cdn.example.com/slip.jpg",
	}
	if err := repo.UpsertByOrderID(first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	paidAt := time.Now().UTC().Truncate(time.Second)
	second := &models.PaymentInfo{
		OrderID:       order.ID,
		Gateway:       constants.GatewayStripe,
		Method:        constants.PaymentMethodCreditCard,
		TransactionID: "pi_123",
		Amount:        models.NewMoneyFromInt(1300),
		Status:        constants.PaymentStatusConfirmed,
		PaymentDate:   &paidAt,
	}
	if err := repo.UpsertByOrderID(second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.PaymentInfo{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("want one payment info row, got %d", count)
	}
	stored, err := repo.GetByOrderID(order.ID)
	if err != nil || stored == nil {
		t.Fatalf("load failed: %v", err)
	}
	if !stored.AlreadySettled(constants.GatewayStripe, "pi_123") {
		t.Fatalf("expected settled snapshot, got %+v", stored)
	}
	if stored.AlreadySettled(constants.GatewayOmise, "pi_123") {
		t.Fatalf("gateway must be part of the settled check")
	}
}
