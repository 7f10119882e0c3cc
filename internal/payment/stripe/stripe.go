package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leafbox-next/internal/constants"

	stripeapi "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

var (
	ErrConfigInvalid    = errors.New("stripe config invalid")
	ErrRequestFailed    = errors.New("stripe request failed")
	ErrResponseInvalid  = errors.New("stripe response invalid")
	ErrSignatureInvalid = errors.New("stripe signature invalid")
)

const defaultWebhookToleranceS = 300

// Config Stripe checkout settings
type Config struct {
	SecretKey               string
	WebhookSecret           string
	SuccessURL              string
	CancelURL               string
	WebhookToleranceSeconds int
	PaymentMethodTypes      []string
}

// SessionAPI is the subset of the checkout session client in use.
type SessionAPI interface {
	New(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
	Get(id string, params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

// Client Stripe Checkout adapter
type Client struct {
	cfg      Config
	sessions SessionAPI
}

// LineItem one checkout line, amounts in minor units
type LineItem struct {
	ProductID  uint
	Name       string
	ImageURL   string
	UnitAmount int64
	Quantity   int64
}

// CheckoutInput session creation input
type CheckoutInput struct {
	OrderID        uint
	OrderNumber    string
	Currency       string
	CustomerEmail  string
	Items          []LineItem
	ShippingAmount int64
	IdempotencyKey string
}

// Session normalized checkout session
type Session struct {
	ID                string
	URL               string
	PaymentIntentID   string
	Status            string
	PaymentStatus     string
	AmountTotal       int64
	Currency          string
	Metadata          map[string]string
	PaymentMethodType string
	CustomerEmail     string
}

// Event verified webhook event
type Event struct {
	ID                 string
	Type               string
	ObjectType         string
	SessionID          string
	PaymentIntentID    string
	Amount             int64
	Currency           string
	Metadata           map[string]string
	PaymentMethodTypes []string
	PaymentMethodType  string
	PaymentStatus      string
	CustomerEmail      string
	Created            time.Time
	Raw                map[string]interface{}
}

// New builds a client backed by the Stripe API.
func New(cfg Config, backends *stripeapi.Backends) (*Client, error) {
	cfg.normalize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	sc := client.New(cfg.SecretKey, backends)
	return &Client{cfg: cfg, sessions: sc.CheckoutSessions}, nil
}

// NewWithSessions builds a client around a custom session API.
func NewWithSessions(cfg Config, sessions SessionAPI) (*Client, error) {
	cfg.normalize()
	if sessions == nil {
		return nil, fmt.Errorf("%w: session api is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	return &Client{cfg: cfg, sessions: sessions}, nil
}

// ValidateConfig checks required settings
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(sanitizeURLForValidation(cfg.SuccessURL)); err != nil {
		return fmt.Errorf("%w: success_url is invalid", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(sanitizeURLForValidation(cfg.CancelURL)); err != nil {
		return fmt.Errorf("%w: cancel_url is invalid", ErrConfigInvalid)
	}
	if len(cfg.PaymentMethodTypes) == 0 {
		return fmt.Errorf("%w: payment_method_types is empty", ErrConfigInvalid)
	}
	return nil
}

// CreateCheckoutSession opens a hosted checkout session. Order id and
// number go on the session and on the payment intent so either event
// type can be matched back to the order.
func (c *Client) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (*Session, error) {
	orderNumber := strings.TrimSpace(input.OrderNumber)
	if orderNumber == "" || input.OrderID == 0 {
		return nil, fmt.Errorf("%w: order reference is required", ErrConfigInvalid)
	}
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrConfigInvalid)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: line items are required", ErrConfigInvalid)
	}

	metadata := map[string]string{
		constants.MetadataOrderID:     strconv.FormatUint(uint64(input.OrderID), 10),
		constants.MetadataOrderNumber: orderNumber,
	}
	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL:        stripeapi.String(expandReturnURL(c.cfg.SuccessURL, orderNumber)),
		CancelURL:         stripeapi.String(expandReturnURL(c.cfg.CancelURL, orderNumber)),
		ClientReferenceID: stripeapi.String(orderNumber),
		Metadata:          copyMetadata(metadata),
		PaymentIntentData: &stripeapi.CheckoutSessionPaymentIntentDataParams{
			Metadata: copyMetadata(metadata),
		},
	}
	params.Context = ctx
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if email := strings.TrimSpace(input.CustomerEmail); email != "" {
		params.CustomerEmail = stripeapi.String(email)
	}
	for _, pmType := range c.cfg.PaymentMethodTypes {
		params.PaymentMethodTypes = append(params.PaymentMethodTypes, stripeapi.String(pmType))
	}

	for _, item := range input.Items {
		if item.UnitAmount <= 0 || item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line item amount must be positive", ErrConfigInvalid)
		}
		productData := &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripeapi.String(item.Name),
			Metadata: map[string]string{
				constants.MetadataProductID: strconv.FormatUint(uint64(item.ProductID), 10),
			},
		}
		if img := strings.TrimSpace(item.ImageURL); img != "" {
			productData.Images = []*string{stripeapi.String(img)}
		}
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(item.Quantity),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripeapi.String(currency),
				UnitAmount:  stripeapi.Int64(item.UnitAmount),
				ProductData: productData,
			},
		})
	}
	if input.ShippingAmount > 0 {
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(1),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(currency),
				UnitAmount: stripeapi.Int64(input.ShippingAmount),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String("Shipping"),
				},
			},
		})
	}

	session, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", ErrRequestFailed, err)
	}
	result := fromCheckoutSession(session)
	if result.ID == "" || result.URL == "" {
		return nil, fmt.Errorf("%w: missing session id or url", ErrResponseInvalid)
	}
	return result, nil
}

// RetrieveSession loads a session with its payment intent and method expanded.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrConfigInvalid)
	}
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	params.AddExpand("payment_intent.payment_method")
	session, err := c.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve checkout session: %v", ErrRequestFailed, err)
	}
	result := fromCheckoutSession(session)
	if result.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrResponseInvalid)
	}
	return result, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Nothing is returned unless the signature checks out.
func (c *Client) ParseWebhook(payload []byte, signatureHeader string) (*Event, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: body is empty", ErrResponseInvalid)
	}
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, fmt.Errorf("%w: Stripe-Signature is required", ErrSignatureInvalid)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.cfg.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                time.Duration(c.cfg.WebhookToleranceSeconds) * time.Second,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing event object", ErrResponseInvalid)
	}

	result := &Event{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if err := json.Unmarshal(payload, &result.Raw); err != nil {
		return nil, fmt.Errorf("%w: decode event failed", ErrResponseInvalid)
	}

	var probe struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(event.Data.Raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: decode event object failed", ErrResponseInvalid)
	}
	result.ObjectType = probe.Object

	switch probe.Object {
	case "checkout.session":
		var session stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: decode checkout session failed", ErrResponseInvalid)
		}
		normalized := fromCheckoutSession(&session)
		result.SessionID = normalized.ID
		result.PaymentIntentID = normalized.PaymentIntentID
		result.Amount = normalized.AmountTotal
		result.Currency = normalized.Currency
		result.Metadata = normalized.Metadata
		result.PaymentMethodTypes = session.PaymentMethodTypes
		result.PaymentMethodType = normalized.PaymentMethodType
		result.PaymentStatus = normalized.PaymentStatus
		result.CustomerEmail = normalized.CustomerEmail
		result.Created = unixOrZero(session.Created)
	case "payment_intent":
		var intent stripeapi.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("%w: decode payment intent failed", ErrResponseInvalid)
		}
		result.PaymentIntentID = intent.ID
		result.Amount = intent.AmountReceived
		if result.Amount <= 0 {
			result.Amount = intent.Amount
		}
		result.Currency = strings.ToUpper(string(intent.Currency))
		result.Metadata = intent.Metadata
		result.PaymentMethodTypes = intent.PaymentMethodTypes
		result.PaymentMethodType = paymentIntentMethodType(&intent)
		result.PaymentStatus = string(intent.Status)
		result.CustomerEmail = intent.ReceiptEmail
		result.Created = unixOrZero(intent.Created)
	}
	return result, nil
}

// TransactionID is the payment intent id when known, so the
// checkout.session.* and payment_intent.* events of one payment share it.
func (e *Event) TransactionID() string {
	if e == nil {
		return ""
	}
	if e.PaymentIntentID != "" {
		return e.PaymentIntentID
	}
	return e.SessionID
}

// GatewayRef is the most specific object id carried by the event.
func (e *Event) GatewayRef() string {
	if e == nil {
		return ""
	}
	if e.SessionID != "" {
		return e.SessionID
	}
	return e.PaymentIntentID
}

func fromCheckoutSession(session *stripeapi.CheckoutSession) *Session {
	if session == nil {
		return &Session{}
	}
	result := &Session{
		ID:            strings.TrimSpace(session.ID),
		URL:           strings.TrimSpace(session.URL),
		Status:        string(session.Status),
		PaymentStatus: string(session.PaymentStatus),
		AmountTotal:   session.AmountTotal,
		Currency:      strings.ToUpper(string(session.Currency)),
		Metadata:      session.Metadata,
		CustomerEmail: strings.TrimSpace(session.CustomerEmail),
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		result.CustomerEmail = strings.TrimSpace(session.CustomerDetails.Email)
	}
	if session.PaymentIntent != nil {
		result.PaymentIntentID = strings.TrimSpace(session.PaymentIntent.ID)
		result.PaymentMethodType = paymentIntentMethodType(session.PaymentIntent)
	}
	if result.PaymentMethodType == "" && len(session.PaymentMethodTypes) == 1 {
		result.PaymentMethodType = session.PaymentMethodTypes[0]
	}
	return result
}

// paymentIntentMethodType prefers the attached payment method; the
// allowed types list only counts when it is unambiguous.
func paymentIntentMethodType(intent *stripeapi.PaymentIntent) string {
	if intent == nil {
		return ""
	}
	if intent.PaymentMethod != nil && intent.PaymentMethod.Type != "" {
		return string(intent.PaymentMethod.Type)
	}
	if len(intent.PaymentMethodTypes) == 1 {
		return intent.PaymentMethodTypes[0]
	}
	return ""
}

func (c *Config) normalize() {
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	c.SuccessURL = strings.TrimSpace(c.SuccessURL)
	c.CancelURL = strings.TrimSpace(c.CancelURL)
	if c.WebhookToleranceSeconds <= 0 {
		c.WebhookToleranceSeconds = defaultWebhookToleranceS
	}
	normalized := make([]string, 0, len(c.PaymentMethodTypes))
	for _, item := range c.PaymentMethodTypes {
		trimmed := strings.ToLower(strings.TrimSpace(item))
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	if len(normalized) == 0 {
		normalized = []string{"card"}
	}
	sort.Strings(normalized)
	c.PaymentMethodTypes = normalized
}

// expandReturnURL fills the {ORDER_NUMBER} placeholder; Stripe fills
// {CHECKOUT_SESSION_ID} itself.
func expandReturnURL(raw, orderNumber string) string {
	return strings.ReplaceAll(raw, "{ORDER_NUMBER}", url.QueryEscape(orderNumber))
}

func sanitizeURLForValidation(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	trimmed = strings.ReplaceAll(trimmed, "{CHECKOUT_SESSION_ID}", "cs_test_placeholder")
	return strings.ReplaceAll(trimmed, "{ORDER_NUMBER}", "2501001")
}

func copyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func unixOrZero(ts int64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
