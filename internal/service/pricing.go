package service

import (
	"context"

	"github.com/leafbox-next/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PricedItem one cart line as the calculator sees it
type PricedItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote computed order totals
type Quote struct {
	Subtotal     models.Money `json:"subtotal"`
	ShippingCost models.Money `json:"shipping_cost"`
	Discount     models.Money `json:"discount"`
	FinalAmount  models.Money `json:"final_amount"`
}

// ShippingRuleSource anything able to hand out the current shipping rule
type ShippingRuleSource interface {
	GetShippingSetting(ctx context.Context) (ShippingSetting, error)
}

// PricingCalculator derives order totals from the persisted shipping rule
type PricingCalculator struct {
	settings ShippingRuleSource
}

// NewPricingCalculator creates the calculator
func NewPricingCalculator(settings ShippingRuleSource) *PricingCalculator {
	return &PricingCalculator{settings: settings}
}

// Quote loads the shipping rule and prices items.
func (c *PricingCalculator) Quote(ctx context.Context, items []PricedItem, discount decimal.Decimal) (Quote, error) {
	rule := defaultShippingSetting()
	if c != nil && c.settings != nil {
		loaded, err := c.settings.GetShippingSetting(ctx)
		if err != nil {
			return Quote{}, err
		}
		rule = loaded
	}
	return ComputeQuote(rule, items, discount)
}

// ComputeQuote is the pure pricing rule:
// final = subtotal + shipping - discount, with the discount capped at the subtotal.
func ComputeQuote(rule ShippingSetting, items []PricedItem, discount decimal.Decimal) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, ErrInvalidOrderItem
	}
	subtotal := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 || !item.UnitPrice.IsPositive() {
			return Quote{}, ErrInvalidOrderItem
		}
		subtotal = subtotal.Add(LineTotal(item.UnitPrice, item.Quantity))
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	shipping := rule.CostFor(subtotal)
	final := subtotal.Add(shipping).Sub(discount)
	return Quote{
		Subtotal:     models.NewMoneyFromDecimal(subtotal),
		ShippingCost: models.NewMoneyFromDecimal(shipping),
		Discount:     models.NewMoneyFromDecimal(discount),
		FinalAmount:  models.NewMoneyFromDecimal(final),
	}, nil
}

// LineTotal quantity x unit price, rounded to 2 places.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// ToMinorUnits satang/cents for a gateway, rounded half up.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// ScaledLine one line after discount distribution
type ScaledLine struct {
	UnitAmount int64
	Quantity   int
}

// ScaleLineItems spreads the quote discount over per-line unit amounts in
// minor units using the factor (subtotal - discount) / subtotal. Each unit
// amount is rounded on its own and floored at 1, so the scaled sum may
// drift from subtotal - discount by at most one minor unit per item.
func ScaleLineItems(items []PricedItem, quote Quote) []ScaledLine {
	lines := make([]ScaledLine, 0, len(items))
	subtotal := quote.Subtotal.Decimal
	factor := decimal.NewFromInt(1)
	if subtotal.IsPositive() && quote.Discount.IsPositive() {
		factor = subtotal.Sub(quote.Discount.Decimal).Div(subtotal)
	}
	for _, item := range items {
		unitMinor := decimal.NewFromInt(ToMinorUnits(item.UnitPrice))
		scaled := unitMinor.Mul(factor).Round(0).IntPart()
		if scaled < 1 {
			scaled = 1
		}
		lines = append(lines, ScaledLine{UnitAmount: scaled, Quantity: item.Quantity})
	}
	return lines
}
