package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	stripeapi "github.com/stripe/stripe-go/v78"
)

type fakeSessions struct {
	lastNew *stripeapi.CheckoutSessionParams
	newResp *stripeapi.CheckoutSession
	getResp *stripeapi.CheckoutSession
	err     error
}

func (f *fakeSessions) New(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	f.lastNew = params
	if f.err != nil {
		return nil, f.err
	}
	return f.newResp, nil
}

func (f *fakeSessions) Get(id string, params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.getResp, nil
}

func newTestClient(t *testing.T, sessions SessionAPI) *Client {
	t.Helper()
	c, err := NewWithSessions(Config{
		SecretKey:          "sk_test_123",
		WebhookSecret:      "whsec_test_abc",
		SuccessURL:         "https://shop.example.com/payment/complete?order={ORDER_NUMBER}&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:          "https://shop.example.com/checkout",
		PaymentMethodTypes: []string{" PromptPay ", "card"},
	}, sessions)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return c
}

func sign(secret string, ts int64, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(strconv.FormatInt(ts, 10) + "." + string(body)))
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + hex.EncodeToString(h.Sum(nil))
}

func TestValidateConfig(t *testing.T) {
	cfg := Config{SecretKey: "sk", WebhookSecret: "whsec", SuccessURL: "https://a.example/ok?s={CHECKOUT_SESSION_ID}", CancelURL: "https://a.example/no"}
	cfg.normalize()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
	if cfg.PaymentMethodTypes[0] != "card" {
		t.Fatalf("expected default card method, got %v", cfg.PaymentMethodTypes)
	}
	cfg.WebhookSecret = ""
	if err := ValidateConfig(cfg); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestCreateCheckoutSessionCarriesMetadata(t *testing.T) {
	fake := &fakeSessions{newResp: &stripeapi.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}}
	c := newTestClient(t, fake)

	session, err := c.CreateCheckoutSession(context.Background(), CheckoutInput{
		OrderID:        7,
		OrderNumber:    "2501007",
		Currency:       "THB",
		CustomerEmail:  "buyer@example.com",
		ShippingAmount: 10000,
		Items: []LineItem{
			{ProductID: 11, Name: "Fiddle Leaf Fig", UnitAmount: 65000, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if session.ID != "cs_test_1" {
		t.Fatalf("unexpected session id: %s", session.ID)
	}
	params := fake.lastNew
	if params.Metadata["order_id"] != "7" || params.Metadata["order_number"] != "2501007" {
		t.Fatalf("unexpected session metadata: %v", params.Metadata)
	}
	if params.PaymentIntentData == nil || params.PaymentIntentData.Metadata["order_id"] != "7" {
		t.Fatalf("payment intent metadata missing")
	}
	if len(params.LineItems) != 2 {
		t.Fatalf("expected product and shipping lines, got %d", len(params.LineItems))
	}
	first := params.LineItems[0]
	if first.PriceData.ProductData.Metadata["product_id"] != "11" {
		t.Fatalf("line item product metadata missing: %v", first.PriceData.ProductData.Metadata)
	}
	if *first.PriceData.Currency != "thb" || *first.PriceData.UnitAmount != 65000 {
		t.Fatalf("unexpected price data")
	}
	if *params.SuccessURL != "https://shop.example.com/payment/complete?order=2501007&session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("unexpected success url: %s", *params.SuccessURL)
	}
	if len(params.PaymentMethodTypes) != 2 || *params.PaymentMethodTypes[0] != "card" || *params.PaymentMethodTypes[1] != "promptpay" {
		t.Fatalf("unexpected payment method types")
	}
}

func TestCreateCheckoutSessionRejectsNonPositiveLine(t *testing.T) {
	c := newTestClient(t, &fakeSessions{})
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutInput{
		OrderID:     1,
		OrderNumber: "2501001",
		Currency:    "THB",
		Items:       []LineItem{{ProductID: 1, Name: "x", UnitAmount: 0, Quantity: 1}},
	})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestParseWebhookCheckoutCompleted(t *testing.T) {
	c := newTestClient(t, &fakeSessions{})
	body, _ := json.Marshal(map[string]interface{}{
		"id":     "evt_test_1",
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":               "checkout.session",
				"id":                   "cs_test_123",
				"payment_intent":       "pi_test_123",
				"payment_status":       "paid",
				"currency":             "thb",
				"amount_total":         130000,
				"payment_method_types": []string{"promptpay"},
				"customer_details":     map[string]interface{}{"email": "buyer@example.com"},
				"metadata": map[string]interface{}{
					"order_id":     "7",
					"order_number": "2501007",
				},
			},
		},
	})
	event, err := c.ParseWebhook(body, sign("whsec_test_abc", time.Now().Unix(), body))
	if err != nil {
		t.Fatalf("parse webhook failed: %v", err)
	}
	if event.Type != "checkout.session.completed" || event.SessionID != "cs_test_123" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.TransactionID() != "pi_test_123" {
		t.Fatalf("transaction id should be the payment intent, got %s", event.TransactionID())
	}
	if event.Amount != 130000 || event.Currency != "THB" {
		t.Fatalf("unexpected amount: %d %s", event.Amount, event.Currency)
	}
	if event.PaymentMethodType != "promptpay" {
		t.Fatalf("unexpected method type: %s", event.PaymentMethodType)
	}
	if event.Metadata["order_number"] != "2501007" {
		t.Fatalf("metadata missing: %v", event.Metadata)
	}
	if event.CustomerEmail != "buyer@example.com" {
		t.Fatalf("unexpected email: %s", event.CustomerEmail)
	}
}

func TestParseWebhookPaymentIntentSucceeded(t *testing.T) {
	c := newTestClient(t, &fakeSessions{})
	body, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_test_2",
		"type": "payment_intent.succeeded",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":               "payment_intent",
				"id":                   "pi_test_123",
				"amount":               130000,
				"amount_received":      130000,
				"currency":             "thb",
				"status":               "succeeded",
				"payment_method_types": []string{"card"},
				"metadata":             map[string]interface{}{"order_id": "7"},
			},
		},
	})
	event, err := c.ParseWebhook(body, sign("whsec_test_abc", time.Now().Unix(), body))
	if err != nil {
		t.Fatalf("parse webhook failed: %v", err)
	}
	if event.SessionID != "" || event.TransactionID() != "pi_test_123" || event.GatewayRef() != "pi_test_123" {
		t.Fatalf("unexpected ids: %+v", event)
	}
	if event.PaymentMethodType != "card" {
		t.Fatalf("unexpected method type: %s", event.PaymentMethodType)
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	c := newTestClient(t, &fakeSessions{})
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"object":"checkout.session","id":"cs_1"}}}`)
	cases := map[string]string{
		"empty":      "",
		"wrong":      "t=" + strconv.FormatInt(time.Now().Unix(), 10) + ",v1=deadbeef",
		"other key":  sign("whsec_other", time.Now().Unix(), body),
		"stale time": sign("whsec_test_abc", time.Now().Add(-time.Hour).Unix(), body),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := c.ParseWebhook(body, header); !errors.Is(err, ErrSignatureInvalid) {
				t.Fatalf("expected signature error, got %v", err)
			}
		})
	}
}

func TestRetrieveSessionUsesExpandedMethod(t *testing.T) {
	fake := &fakeSessions{getResp: &stripeapi.CheckoutSession{
		ID:                 "cs_test_9",
		PaymentMethodTypes: []string{"card", "promptpay"},
		PaymentIntent: &stripeapi.PaymentIntent{
			ID:            "pi_test_9",
			PaymentMethod: &stripeapi.PaymentMethod{Type: stripeapi.PaymentMethodTypeCard},
		},
	}}
	c := newTestClient(t, fake)
	session, err := c.RetrieveSession(context.Background(), "cs_test_9")
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if session.PaymentMethodType != "card" || session.PaymentIntentID != "pi_test_9" {
		t.Fatalf("unexpected session: %+v", session)
	}
}
