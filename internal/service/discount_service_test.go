package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leafbox-next/internal/models"

	"github.com/shopspring/decimal"
)

func (env *serviceTestEnv) createDiscount(t *testing.T, code models.DiscountCode) models.DiscountCode {
	t.Helper()
	code.IsActive = true
	if err := env.db.Create(&code).Error; err != nil {
		t.Fatalf("create discount failed: %v", err)
	}
	return code
}

func TestDiscountEvaluate(t *testing.T) {
	env := setupServiceTest(t)
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	env.createDiscount(t, models.DiscountCode{Code: "FIXED100", Type: models.DiscountTypeFixed, Value: models.NewMoneyFromInt(100)})
	env.createDiscount(t, models.DiscountCode{Code: "TENPCT", Type: models.DiscountTypePercent, Value: models.NewMoneyFromInt(10), MaxDiscount: models.NewMoneyFromInt(120)})
	env.createDiscount(t, models.DiscountCode{Code: "EXPIRED", Type: models.DiscountTypeFixed, Value: models.NewMoneyFromInt(50), EndsAt: &past})
	env.createDiscount(t, models.DiscountCode{Code: "LATER", Type: models.DiscountTypeFixed, Value: models.NewMoneyFromInt(50), StartsAt: &future})
	env.createDiscount(t, models.DiscountCode{Code: "USEDUP", Type: models.DiscountTypeFixed, Value: models.NewMoneyFromInt(50), UsageLimit: 2, UsedCount: 2})
	env.createDiscount(t, models.DiscountCode{Code: "BIGSPEND", Type: models.DiscountTypeFixed, Value: models.NewMoneyFromInt(50), MinAmount: models.NewMoneyFromInt(3000)})
	env.createDiscount(t, models.DiscountCode{Code: "HUGE", Type: models.DiscountTypeFixed, Value: models.NewMoneyFromInt(9000)})

	tests := []struct {
		name     string
		code     string
		subtotal int64
		want     string
		err      error
	}{
		{name: "empty", code: "", subtotal: 1000, want: "0"},
		{name: "fixed", code: "fixed100", subtotal: 1000, want: "100"},
		{name: "percent", code: "TENPCT", subtotal: 1000, want: "100"},
		{name: "percent capped", code: "TENPCT", subtotal: 5000, want: "120"},
		{name: "capped at subtotal", code: "HUGE", subtotal: 1000, want: "1000"},
		{name: "unknown", code: "NOPE", subtotal: 1000, err: ErrDiscountInvalid},
		{name: "expired", code: "EXPIRED", subtotal: 1000, err: ErrDiscountExpired},
		{name: "not started", code: "LATER", subtotal: 1000, err: ErrDiscountInvalid},
		{name: "used up", code: "USEDUP", subtotal: 1000, err: ErrDiscountUsedUp},
		{name: "minimum", code: "BIGSPEND", subtotal: 1000, err: ErrDiscountMinAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, err := env.discounts.Evaluate(tt.code, decimal.NewFromInt(tt.subtotal), now)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate error: %v", err)
			}
			if !applied.Amount.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, applied.Amount)
			}
		})
	}
}

func TestDiscountUsageCountedOncePerSettlement(t *testing.T) {
	env := setupServiceTest(t)
	code := env.createDiscount(t, models.DiscountCode{Code: "SPRING", Type: models.DiscountTypeFixed, Value: models.NewMoneyFromInt(130)})

	input := env.orderInput(OrderItemInput{ProductID: env.cheap.ID, Quantity: 2})
	input.DiscountCode = "spring"
	result, err := env.checkout.Checkout(context.Background(), CheckoutInput{Order: input, Intent: StripeSession{}})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	order := result.Order
	if order.DiscountCodeID == nil || *order.DiscountCodeID != code.ID {
		t.Fatalf("expected discount linked to order, got %v", order.DiscountCodeID)
	}
	if !order.FinalAmount.Equal(decimal.NewFromInt(1270)) {
		t.Fatalf("expected 1300 - 130 + 100 = 1270, got %s", order.FinalAmount)
	}
	req := env.stripe.created[0]
	if req.Items[0].UnitAmount != 58500 {
		t.Fatalf("expected scaled unit amount 58500, got %d", req.Items[0].UnitAmount)
	}

	reload := func() int {
		var row models.DiscountCode
		if err := env.db.First(&row, code.ID).Error; err != nil {
			t.Fatalf("reload discount failed: %v", err)
		}
		return row.UsedCount
	}
	if got := reload(); got != 0 {
		t.Fatalf("usage must not count before payment, got %d", got)
	}

	event := completedSessionEvent(order, order.GatewaySessionID)
	event.Amount = 127000
	env.stripe.setEvent(event)
	for i := 0; i < 2; i++ {
		if _, err := env.reconcile.HandleStripeWebhook(context.Background(), []byte("{}"), "valid"); err != nil {
			t.Fatalf("delivery %d error: %v", i, err)
		}
	}
	if got := reload(); got != 1 {
		t.Fatalf("expected usage counted once, got %d", got)
	}
}
