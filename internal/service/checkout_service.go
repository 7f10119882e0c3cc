package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/metrics"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/payment/omise"
	"github.com/leafbox-next/internal/payment/stripe"
	"github.com/leafbox-next/internal/repository"
)

// CheckoutService routes a checkout through the adapter its payment
// intent names and writes the ledger row at the point that adapter allows.
type CheckoutService struct {
	orders    *OrderService
	orderRepo repository.OrderRepository
	gateways  Gateways
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewCheckoutService creates the checkout service
func NewCheckoutService(orders *OrderService, orderRepo repository.OrderRepository, gateways Gateways, m *metrics.Metrics) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		orderRepo: orderRepo,
		gateways:  gateways,
		metrics:   m,
		now:       time.Now,
	}
}

// CheckoutInput order payload plus how it is paid
type CheckoutInput struct {
	Order  CreateOrderInput
	Intent PaymentIntent
}

// CheckoutResult persisted order and, for redirect flows, where the
// client goes next.
type CheckoutResult struct {
	Order       *models.Order
	RedirectURL string
}

// Checkout validates, prices, pays and records one order.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.Intent == nil {
		return nil, ErrInvalidPaymentMethod
	}
	input.Order.PaymentMethod = input.Intent.Method()
	input.Order.Gateway = input.Intent.Gateway()

	var (
		result *CheckoutResult
		err    error
	)
	switch intent := input.Intent.(type) {
	case ManualSlip:
		result, err = s.checkoutManual(ctx, input.Order)
	case OmiseCharge:
		if intent.PromptPay() {
			result, err = s.checkoutPromptPay(ctx, input.Order, intent)
		} else {
			result, err = s.checkoutOmiseCard(ctx, input.Order, intent)
		}
	case StripeSession:
		result, err = s.checkoutStripe(ctx, input.Order)
	default:
		err = ErrInvalidPaymentMethod
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.IncCheckout(input.Intent.Variant(), outcome)
	if err != nil {
		logger.Warnw("checkout_failed", "variant", input.Intent.Variant(), "error", err)
		return nil, err
	}
	return result, nil
}

func (s *CheckoutService) checkoutManual(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error) {
	order, err := s.orders.CreateOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{Order: order}, nil
}

// checkoutOmiseCard charges the card before anything is written. A failed
// charge leaves the ledger untouched.
func (s *CheckoutService) checkoutOmiseCard(ctx context.Context, input CreateOrderInput, intent OmiseCharge) (*CheckoutResult, error) {
	if s.gateways.Omise == nil {
		return nil, ErrGatewayDisabled
	}
	prepared, err := s.orders.PrepareOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	expected, err := gatewayAmount(prepared.Quote)
	if err != nil {
		return nil, err
	}
	// The order number does not exist until the charge returns, so the
	// 3-D Secure return URL carries none; the client keeps the order number
	// from the checkout response for verify polling.
	charge, err := s.gateways.Omise.CreateCharge(ctx, omise.CreateChargeInput{
		Amount:      expected,
		Currency:    s.orders.currency,
		CardToken:   intent.CardToken,
		Description: "order for " + prepared.Customer.Email,
		ReturnURI:   s.gateways.Omise.ReturnURL(""),
		Metadata: map[string]string{
			"customer_email": prepared.Customer.Email,
		},
	})
	if err != nil {
		logger.Warnw("omise_charge_create_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if !s.chargeMatches(charge, expected) {
		// nothing is written; the charge's webhook finds no order and is
		// parked as a pending payment for review
		logger.Errorw("omise_card_amount_mismatch",
			"charge_id", charge.ID,
			"charge_status", charge.Status,
			"charge_amount", charge.Amount,
			"charge_currency", charge.Currency,
			"expected_amount", expected,
		)
		return nil, ErrAmountMismatch
	}

	var state OrderState
	switch {
	case charge.Status == constants.OmiseChargeStatusSuccessful && charge.Paid:
		state = s.settledOmiseState(charge, prepared.Input.PaymentMethod, constants.OmiseEventChargeCreate)
	case charge.Status == constants.OmiseChargeStatusPending && charge.AuthorizeURI != "":
		state = OrderState{
			Status:           constants.OrderStatusPending,
			PaymentStatus:    constants.PaymentStatusPending,
			GatewaySessionID: charge.ID,
		}
	default:
		logger.Warnw("omise_charge_rejected",
			"charge_id", charge.ID,
			"status", charge.Status,
			"failure_code", charge.FailureCode,
		)
		return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, fallbackText(charge.FailureMessage, charge.Status))
	}

	order, err := s.orders.PersistOrder(ctx, prepared, state)
	if err != nil {
		logger.Errorw("omise_order_persist_failed_after_charge", "charge_id", charge.ID, "error", err)
		return nil, err
	}
	s.tagOmiseCharge(ctx, charge.ID, order)

	result := &CheckoutResult{Order: order}
	if order.PaymentStatus == constants.PaymentStatusPending {
		result.RedirectURL = charge.AuthorizeURI
	}
	return result, nil
}

// checkoutPromptPay trusts a client supplied charge id only after the
// gateway confirms the charge exists for exactly this amount.
func (s *CheckoutService) checkoutPromptPay(ctx context.Context, input CreateOrderInput, intent OmiseCharge) (*CheckoutResult, error) {
	if s.gateways.Omise == nil {
		return nil, ErrGatewayDisabled
	}
	prepared, err := s.orders.PrepareOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	expected, err := gatewayAmount(prepared.Quote)
	if err != nil {
		return nil, err
	}
	charge, err := s.gateways.Omise.RetrieveCharge(ctx, intent.ChargeID)
	if err != nil {
		logger.Warnw("omise_charge_retrieve_failed", "charge_id", intent.ChargeID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if !s.chargeMatches(charge, expected) {
		logger.Warnw("omise_promptpay_amount_mismatch",
			"charge_id", charge.ID,
			"charge_amount", charge.Amount,
			"charge_currency", charge.Currency,
			"expected_amount", expected,
		)
		return nil, ErrAmountMismatch
	}
	existing, err := s.orderRepo.GetBySessionID(charge.ID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: charge already linked to an order", ErrPaymentRejected)
	}

	var state OrderState
	switch charge.Status {
	case constants.OmiseChargeStatusSuccessful:
		state = s.settledOmiseState(charge, constants.PaymentMethodPromptPay, constants.OmiseEventChargeCreate)
	case constants.OmiseChargeStatusPending:
		state = OrderState{
			Status:           constants.OrderStatusPending,
			PaymentStatus:    constants.PaymentStatusPending,
			GatewaySessionID: charge.ID,
		}
	default:
		return nil, fmt.Errorf("%w: charge %s", ErrPaymentRejected, charge.Status)
	}

	order, err := s.orders.PersistOrder(ctx, prepared, state)
	if err != nil {
		return nil, err
	}
	s.tagOmiseCharge(ctx, charge.ID, order)
	return &CheckoutResult{Order: order}, nil
}

// checkoutStripe writes the order first, then opens the hosted session.
// Settlement only ever comes from the webhook.
func (s *CheckoutService) checkoutStripe(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error) {
	if s.gateways.Stripe == nil {
		return nil, ErrGatewayDisabled
	}
	prepared, err := s.orders.PrepareOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	if _, err := gatewayAmount(prepared.Quote); err != nil {
		return nil, err
	}
	order, err := s.orders.PersistOrder(ctx, prepared, OrderState{})
	if err != nil {
		return nil, err
	}

	scaled := ScaleLineItems(prepared.Priced, prepared.Quote)
	items := make([]stripe.LineItem, 0, len(scaled))
	for i, line := range scaled {
		item := prepared.Items[i]
		items = append(items, stripe.LineItem{
			ProductID:  item.ProductID,
			Name:       item.ProductName,
			ImageURL:   item.ProductImg,
			UnitAmount: line.UnitAmount,
			Quantity:   int64(line.Quantity),
		})
	}
	session, err := s.gateways.Stripe.CreateCheckoutSession(ctx, stripe.CheckoutInput{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Currency:       order.Currency,
		CustomerEmail:  prepared.Customer.Email,
		Items:          items,
		ShippingAmount: ToMinorUnits(prepared.Quote.ShippingCost.Decimal),
		IdempotencyKey: "checkout-" + order.OrderNumber,
	})
	if err != nil {
		// the order stays PENDING for admin follow-up
		logger.Warnw("stripe_session_create_failed", "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"gateway_session_id": session.ID,
		"updated_at":         s.now(),
	}); err != nil {
		// the webhook falls back to metadata and back-fills the id
		logger.Warnw("stripe_session_store_failed", "order_id", order.ID, "session_id", session.ID, "error", err)
	} else {
		order.GatewaySessionID = session.ID
	}
	return &CheckoutResult{Order: order, RedirectURL: session.URL}, nil
}

// gatewayAmount the final amount in minor units. Gateways refuse zero, so
// a fully discounted order can only go through the manual flow.
func gatewayAmount(quote Quote) (int64, error) {
	amount := ToMinorUnits(quote.FinalAmount.Decimal)
	if amount < 1 {
		return 0, fmt.Errorf("%w: final amount %s", ErrAmountBelowMinimum, quote.FinalAmount.String())
	}
	return amount, nil
}

// chargeMatches the charge is for exactly expected minor units in the
// shop currency.
func (s *CheckoutService) chargeMatches(charge *omise.Charge, expected int64) bool {
	return charge.Amount == expected && strings.EqualFold(charge.Currency, s.orders.currency)
}

func (s *CheckoutService) settledOmiseState(charge *omise.Charge, fallback constants.PaymentMethod, eventType string) OrderState {
	paidAt := charge.PaidTime(s.now())
	return OrderState{
		Status:           constants.OrderStatusPaid,
		PaymentStatus:    constants.PaymentStatusConfirmed,
		GatewaySessionID: charge.ID,
		PaidAt:           &paidAt,
		Payment: &models.PaymentInfo{
			Gateway:       constants.GatewayOmise,
			Method:        constants.PaymentMethodFromGateway(charge.MethodType(), fallback),
			TransactionID: charge.ID,
			Amount:        models.MoneyFromMinorUnits(charge.Amount),
			Status:        constants.PaymentStatusConfirmed,
			PaymentDate:   &paidAt,
			EventType:     eventType,
		},
	}
}

// tagOmiseCharge writes the ledger ids onto the charge for webhook lookup.
func (s *CheckoutService) tagOmiseCharge(ctx context.Context, chargeID string, order *models.Order) {
	if _, err := s.gateways.Omise.UpdateChargeMetadata(ctx, chargeID, map[string]string{
		constants.MetadataOrderID:     strconv.FormatUint(uint64(order.ID), 10),
		constants.MetadataOrderNumber: order.OrderNumber,
	}); err != nil {
		logger.Warnw("omise_charge_metadata_update_failed",
			"charge_id", chargeID,
			"order_id", order.ID,
			"error", err,
		)
	}
}
