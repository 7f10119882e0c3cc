package omise

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConfigInvalid    = errors.New("omise config invalid")
	ErrRequestFailed    = errors.New("omise request failed")
	ErrResponseInvalid  = errors.New("omise response invalid")
	ErrSignatureInvalid = errors.New("omise signature invalid")
)

const (
	defaultAPIBaseURL        = "https://api.omise.co"
	defaultTimeout           = 12 * time.Second
	defaultWebhookToleranceS = 300

	HeaderSignature          = "Omise-Signature"
	HeaderSignatureTimestamp = "Omise-Signature-Timestamp"
)

// Config Omise account settings
type Config struct {
	SecretKey               string
	WebhookSecret           string
	APIBaseURL              string
	ReturnURL               string
	Timeout                 time.Duration
	WebhookToleranceSeconds int
}

// Client Omise REST client
type Client struct {
	cfg  Config
	http *http.Client
}

// Charge subset of the Omise charge object
type Charge struct {
	Object         string            `json:"object"`
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status"`
	Paid           bool              `json:"paid"`
	Authorized     bool              `json:"authorized"`
	AuthorizeURI   string            `json:"authorize_uri"`
	FailureCode    string            `json:"failure_code"`
	FailureMessage string            `json:"failure_message"`
	Transaction    string            `json:"transaction"`
	Metadata       map[string]string `json:"metadata"`
	Source         *Source           `json:"source"`
	Card           *Card             `json:"card"`
	CreatedAt      string            `json:"created_at"`
	PaidAt         string            `json:"paid_at"`
}

// Source payment source attached to a charge
type Source struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Card card attached to a charge
type Card struct {
	ID    string `json:"id"`
	Brand string `json:"brand"`
	Last  string `json:"last_digits"`
}

// CreateChargeInput charge creation input
type CreateChargeInput struct {
	Amount      int64
	Currency    string
	CardToken   string
	SourceID    string
	Description string
	ReturnURI   string
	Metadata    map[string]string
}

// WebhookEvent Omise event envelope
type WebhookEvent struct {
	Object string          `json:"object"`
	ID     string          `json:"id"`
	Key    string          `json:"key"`
	Data   json.RawMessage `json:"data"`
}

type apiError struct {
	Object  string `json:"object"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New builds a client
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	cfg.normalize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// ValidateConfig checks required settings
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.APIBaseURL)); err != nil {
		return fmt.Errorf("%w: api_base_url is invalid", ErrConfigInvalid)
	}
	return nil
}

func (c *Config) normalize() {
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	c.ReturnURL = strings.TrimSpace(c.ReturnURL)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.WebhookToleranceSeconds <= 0 {
		c.WebhookToleranceSeconds = defaultWebhookToleranceS
	}
}

// ReturnURL configured 3-D Secure return URL, {ORDER_NUMBER} expanded.
// With no order number any query parameter carrying the placeholder is
// dropped instead of sent empty; the client then resumes from the order
// number in its checkout response.
func (c *Client) ReturnURL(orderNumber string) string {
	if orderNumber != "" {
		return strings.ReplaceAll(c.cfg.ReturnURL, "{ORDER_NUMBER}", url.QueryEscape(orderNumber))
	}
	u, err := url.Parse(c.cfg.ReturnURL)
	if err != nil {
		return strings.ReplaceAll(c.cfg.ReturnURL, "{ORDER_NUMBER}", "")
	}
	query := u.Query()
	for key, values := range query {
		for _, v := range values {
			if strings.Contains(v, "{ORDER_NUMBER}") {
				query.Del(key)
				break
			}
		}
	}
	u.RawQuery = query.Encode()
	u.Path = strings.ReplaceAll(u.Path, "{ORDER_NUMBER}", "")
	return u.String()
}

// CreateCharge creates a captured charge from a card token or a source.
func (c *Client) CreateCharge(ctx context.Context, input CreateChargeInput) (*Charge, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrConfigInvalid)
	}
	if strings.TrimSpace(input.CardToken) == "" && strings.TrimSpace(input.SourceID) == "" {
		return nil, fmt.Errorf("%w: card token or source is required", ErrConfigInvalid)
	}
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrConfigInvalid)
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(input.Amount, 10))
	form.Set("currency", currency)
	form.Set("capture", "true")
	if token := strings.TrimSpace(input.CardToken); token != "" {
		form.Set("card", token)
	}
	if source := strings.TrimSpace(input.SourceID); source != "" {
		form.Set("source", source)
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		form.Set("description", desc)
	}
	if uri := strings.TrimSpace(input.ReturnURI); uri != "" {
		form.Set("return_uri", uri)
	}
	setMetadata(form, input.Metadata)

	var charge Charge
	if err := c.do(ctx, http.MethodPost, "/charges", form, &charge); err != nil {
		return nil, err
	}
	if charge.ID == "" {
		return nil, fmt.Errorf("%w: missing charge id", ErrResponseInvalid)
	}
	return &charge, nil
}

// RetrieveCharge loads a charge by id
func (c *Client) RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return nil, fmt.Errorf("%w: charge id is required", ErrConfigInvalid)
	}
	var charge Charge
	if err := c.do(ctx, http.MethodGet, "/charges/"+url.PathEscape(chargeID), nil, &charge); err != nil {
		return nil, err
	}
	if charge.ID == "" {
		return nil, fmt.Errorf("%w: missing charge id", ErrResponseInvalid)
	}
	return &charge, nil
}

// UpdateChargeMetadata replaces the charge metadata.
func (c *Client) UpdateChargeMetadata(ctx context.Context, chargeID string, metadata map[string]string) (*Charge, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return nil, fmt.Errorf("%w: charge id is required", ErrConfigInvalid)
	}
	form := url.Values{}
	setMetadata(form, metadata)
	var charge Charge
	if err := c.do(ctx, http.MethodPatch, "/charges/"+url.PathEscape(chargeID), form, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// VerifyWebhook checks the HMAC-SHA256 signature over "timestamp.body"
// with the base64 encoded webhook secret, then decodes the envelope.
func (c *Client) VerifyWebhook(headers http.Header, body []byte, now time.Time) (*WebhookEvent, error) {
	if c.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: body is empty", ErrResponseInvalid)
	}
	if now.IsZero() {
		now = time.Now()
	}
	rawSignatures := strings.TrimSpace(headers.Get(HeaderSignature))
	rawTimestamp := strings.TrimSpace(headers.Get(HeaderSignatureTimestamp))
	if rawSignatures == "" || rawTimestamp == "" {
		return nil, fmt.Errorf("%w: signature headers are required", ErrSignatureInvalid)
	}
	timestamp, err := strconv.ParseInt(rawTimestamp, 10, 64)
	if err != nil || timestamp <= 0 {
		return nil, fmt.Errorf("%w: invalid timestamp", ErrSignatureInvalid)
	}
	delta := now.Unix() - timestamp
	if delta < 0 {
		delta = -delta
	}
	if delta > int64(c.cfg.WebhookToleranceSeconds) {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
	}

	expected, err := ComputeSignature(c.cfg.WebhookSecret, rawTimestamp, body)
	if err != nil {
		return nil, err
	}
	matched := false
	for _, sig := range strings.Split(rawSignatures, ",") {
		sig = strings.ToLower(strings.TrimSpace(sig))
		if sig != "" && hmac.Equal([]byte(sig), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: decode event failed", ErrResponseInvalid)
	}
	if event.Key == "" {
		return nil, fmt.Errorf("%w: missing event key", ErrResponseInvalid)
	}
	return &event, nil
}

// ChargeID extracts the charge id from the event data.
func (e *WebhookEvent) ChargeID() string {
	if e == nil || len(e.Data) == 0 {
		return ""
	}
	var data struct {
		Object string `json:"object"`
		ID     string `json:"id"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil || data.Object != "charge" {
		return ""
	}
	return data.ID
}

// ComputeSignature hex HMAC-SHA256 of "timestamp.body".
func ComputeSignature(secret, timestamp string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
	if err != nil {
		return "", fmt.Errorf("%w: webhook_secret must be base64", ErrConfigInvalid)
	}
	h := hmac.New(sha256.New, key)
	_, _ = h.Write([]byte(timestamp + "." + string(body)))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MethodType reports the source type for source charges and "card" for card charges.
func (ch *Charge) MethodType() string {
	if ch == nil {
		return ""
	}
	if ch.Source != nil && ch.Source.Type != "" {
		return ch.Source.Type
	}
	if ch.Card != nil {
		return "card"
	}
	return ""
}

// PaidTime parses paid_at, falling back to now.
func (ch *Charge) PaidTime(now time.Time) time.Time {
	if ch != nil && ch.PaidAt != "" {
		if parsed, err := time.Parse(time.RFC3339, ch.PaidAt); err == nil {
			return parsed.UTC()
		}
	}
	return now.UTC()
}

func setMetadata(form url.Values, metadata map[string]string) {
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.SetBasicAuth(c.cfg.SecretKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			return fmt.Errorf("%w: status %d %s: %s", ErrRequestFailed, resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return nil
}
