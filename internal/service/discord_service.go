package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/models"
)

const discordMaxContentLength = 2000

// DiscordMessage chat-ops payload
type DiscordMessage struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed minimal embed
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// DiscordEmbedField embed field
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordService posts to a Discord incoming webhook
type DiscordService struct {
	cfg  config.DiscordConfig
	http *http.Client
}

// NewDiscordService creates the service. httpClient may be nil.
func NewDiscordService(cfg config.DiscordConfig, httpClient *http.Client) *DiscordService {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &DiscordService{cfg: cfg, http: httpClient}
}

// Enabled reports whether a webhook is configured
func (s *DiscordService) Enabled() bool {
	return s != nil && s.cfg.Enabled && strings.TrimSpace(s.cfg.WebhookURL) != ""
}

// Send posts one message. The request is bound to ctx.
func (s *DiscordService) Send(ctx context.Context, msg DiscordMessage) error {
	if !s.Enabled() {
		return ErrDiscordDisabled
	}
	if msg.Username == "" {
		msg.Username = strings.TrimSpace(s.cfg.Username)
	}
	if len(msg.Content) > discordMaxContentLength {
		msg.Content = msg.Content[:discordMaxContentLength]
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSpace(s.cfg.WebhookURL), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// BuildOrderDiscordMessage order alert
func BuildOrderDiscordMessage(order *models.Order, title string, color int) DiscordMessage {
	if order == nil {
		return DiscordMessage{Content: title}
	}
	fields := []DiscordEmbedField{
		{Name: "Order", Value: "#" + order.OrderNumber, Inline: true},
		{Name: "Total", Value: FormatAmount(order.FinalAmount, order.Currency), Inline: true},
		{Name: "Payment", Value: fmt.Sprintf("%s / %s", order.PaymentMethod, order.PaymentStatus), Inline: true},
		{Name: "Gateway", Value: string(order.Gateway), Inline: true},
	}
	if order.CustomerInfo != nil {
		fields = append(fields, DiscordEmbedField{Name: "Customer", Value: SanitizeText(order.CustomerInfo.FullName())})
	}
	if order.DiscountCode != "" {
		fields = append(fields, DiscordEmbedField{Name: "Discount", Value: fmt.Sprintf("%s (-%s)", order.DiscountCode, FormatAmount(order.Discount, order.Currency))})
	}
	return DiscordMessage{
		Embeds: []DiscordEmbed{{
			Title:     title,
			Color:     color,
			Fields:    fields,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	}
}

// BuildPendingPaymentDiscordMessage alert for an unmatched gateway event
func BuildPendingPaymentDiscordMessage(row *models.PendingPayment) DiscordMessage {
	if row == nil {
		return DiscordMessage{Content: "Unmatched payment received"}
	}
	return DiscordMessage{
		Embeds: []DiscordEmbed{{
			Title:       "Unmatched payment received",
			Description: "No order matched this gateway event. Resolve it from the pending payments list.",
			Color:       0xE67E22,
			Fields: []DiscordEmbedField{
				{Name: "Gateway", Value: string(row.Gateway), Inline: true},
				{Name: "Reference", Value: row.GatewayRef, Inline: true},
				{Name: "Amount", Value: FormatAmount(row.Amount, row.Currency), Inline: true},
				{Name: "Metadata order", Value: fallbackText(row.MetadataOrderNumber, row.MetadataOrderID)},
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	}
}

func fallbackText(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return "-"
}
