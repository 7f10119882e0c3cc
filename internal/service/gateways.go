package service

import (
	"context"
	"net/http"
	"time"

	"github.com/leafbox-next/internal/payment/omise"
	"github.com/leafbox-next/internal/payment/stripe"
)

// OmiseGateway charge API used by checkout and reconciliation
type OmiseGateway interface {
	CreateCharge(ctx context.Context, input omise.CreateChargeInput) (*omise.Charge, error)
	RetrieveCharge(ctx context.Context, chargeID string) (*omise.Charge, error)
	UpdateChargeMetadata(ctx context.Context, chargeID string, metadata map[string]string) (*omise.Charge, error)
	ReturnURL(orderNumber string) string
	VerifyWebhook(headers http.Header, body []byte, now time.Time) (*omise.WebhookEvent, error)
}

// StripeGateway checkout session API used by checkout and reconciliation
type StripeGateway interface {
	CreateCheckoutSession(ctx context.Context, input stripe.CheckoutInput) (*stripe.Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripe.Session, error)
	ParseWebhook(payload []byte, signatureHeader string) (*stripe.Event, error)
}

// Gateways configured payment adapters. A nil field means the gateway is
// disabled.
type Gateways struct {
	Omise  OmiseGateway
	Stripe StripeGateway
}
