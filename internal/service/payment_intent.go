package service

import (
	"fmt"
	"strings"

	"github.com/leafbox-next/internal/constants"
)

// Payment variants accepted by checkout
const (
	PaymentVariantManualSlip     = "manual_slip"
	PaymentVariantCOD            = "cod"
	PaymentVariantOmiseCard      = "omise_card"
	PaymentVariantOmisePromptPay = "omise_promptpay"
	PaymentVariantStripeCheckout = "stripe_checkout"
)

// PaymentIntent how a checkout is going to be paid. The set of
// implementations is closed: ManualSlip, OmiseCharge, StripeSession.
type PaymentIntent interface {
	Variant() string
	Gateway() constants.Gateway
	Method() constants.PaymentMethod
	paymentIntent()
}

// ManualSlip bank transfer confirmed by an admin from an uploaded slip,
// or cash on delivery.
type ManualSlip struct {
	COD bool
}

func (ManualSlip) paymentIntent() {}

func (m ManualSlip) Variant() string {
	if m.COD {
		return PaymentVariantCOD
	}
	return PaymentVariantManualSlip
}

func (ManualSlip) Gateway() constants.Gateway { return constants.GatewayManual }

func (m ManualSlip) Method() constants.PaymentMethod {
	if m.COD {
		return constants.PaymentMethodCOD
	}
	return constants.PaymentMethodBankTransfer
}

// OmiseCharge card token charged at checkout, or a PromptPay charge the
// client already opened and only hands over by id.
type OmiseCharge struct {
	CardToken string
	ChargeID  string
}

func (OmiseCharge) paymentIntent() {}

// PromptPay reports whether the intent refers to an existing PromptPay charge.
func (o OmiseCharge) PromptPay() bool {
	return o.ChargeID != "" && o.CardToken == ""
}

func (o OmiseCharge) Variant() string {
	if o.PromptPay() {
		return PaymentVariantOmisePromptPay
	}
	return PaymentVariantOmiseCard
}

func (OmiseCharge) Gateway() constants.Gateway { return constants.GatewayOmise }

func (o OmiseCharge) Method() constants.PaymentMethod {
	if o.PromptPay() {
		return constants.PaymentMethodPromptPay
	}
	return constants.PaymentMethodCreditCard
}

// StripeSession hosted Stripe Checkout. The method is provisional until
// the webhook reports what the customer actually used.
type StripeSession struct{}

func (StripeSession) paymentIntent() {}

func (StripeSession) Variant() string { return PaymentVariantStripeCheckout }

func (StripeSession) Gateway() constants.Gateway { return constants.GatewayStripe }

func (StripeSession) Method() constants.PaymentMethod { return constants.PaymentMethodCreditCard }

// ParsePaymentIntent builds an intent from the wire variant name.
func ParsePaymentIntent(variant, cardToken, chargeID string) (PaymentIntent, error) {
	cardToken = strings.TrimSpace(cardToken)
	chargeID = strings.TrimSpace(chargeID)
	switch strings.ToLower(strings.TrimSpace(variant)) {
	case PaymentVariantManualSlip, "bank_transfer":
		return ManualSlip{}, nil
	case PaymentVariantCOD:
		return ManualSlip{COD: true}, nil
	case PaymentVariantOmiseCard:
		if cardToken == "" {
			return nil, fmt.Errorf("%w: card token is required", ErrInvalidPaymentMethod)
		}
		return OmiseCharge{CardToken: cardToken}, nil
	case PaymentVariantOmisePromptPay:
		if chargeID == "" {
			return nil, fmt.Errorf("%w: charge id is required", ErrInvalidPaymentMethod)
		}
		return OmiseCharge{ChargeID: chargeID}, nil
	case PaymentVariantStripeCheckout:
		return StripeSession{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, variant)
	}
}
