package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/models"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// EmailService SMTP sender for HTML mail
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService creates the email service
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Enabled reports whether mail can be sent at all
func (s *EmailService) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled
}

// AdminRecipients configured back-office recipients
func (s *EmailService) AdminRecipients() []string {
	if s == nil || s.cfg == nil {
		return nil
	}
	result := make([]string, 0, len(s.cfg.AdminEmails))
	for _, addr := range s.cfg.AdminEmails {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// SendHTML delivers one HTML message to every recipient in one SMTP session.
func (s *EmailService) SendHTML(ctx context.Context, to []string, subject, html string) error {
	if s == nil || s.cfg == nil || !s.cfg.Enabled {
		return ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if len(to) == 0 {
		return ErrInvalidEmail
	}
	for _, addr := range to {
		if _, err := mail.ParseAddress(addr); err != nil {
			return ErrInvalidEmail
		}
	}

	from := buildFromAddress(s.cfg.From, s.cfg.FromName)
	msg := buildEmailMessage(from, strings.Join(to, ", "), subject, html)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" || s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	conn, err := dialSMTP(ctx, addr, s.cfg.Host, s.cfg.UseSSL)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.UseTLS && !s.cfg.UseSSL {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}
	return normalizeEmailSendError(sendSMTPData(client, s.cfg.From, to, []byte(msg)))
}

// dialSMTP opens the transport honouring ctx for both the dial and the
// whole conversation.
func dialSMTP(ctx context.Context, addr, host string, useSSL bool) (net.Conn, error) {
	dialer := &net.Dialer{}
	var (
		conn net.Conn
		err  error
	)
	if useSSL {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return conn, nil
}

func buildFromAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	encoded := mime.QEncoding.Encode("UTF-8", name)
	return (&mail.Address{Name: encoded, Address: from}).String()
}

func buildEmailMessage(from, to, subject, body string) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

func sendSMTPData(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func normalizeEmailSendError(err error) error {
	if err == nil {
		return nil
	}
	if isEmailRecipientRejected(err) {
		return fmt.Errorf("%w: %v", ErrEmailRecipientRejected, err)
	}
	return err
}

func isEmailRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	if message == "" {
		return false
	}
	for _, keyword := range []string{
		"no such recipient",
		"no such user",
		"recipient address rejected",
		"user unknown",
		"unknown mailbox",
		"mailbox unavailable",
	} {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	if strings.Contains(message, "550") {
		for _, hint := range []string{"recipient", "user", "mailbox", "rcpt"} {
			if strings.Contains(message, hint) {
				return true
			}
		}
	}
	return false
}

// Mail content. Layout is intentionally plain; user supplied text is
// stripped of markup before it reaches the template.

var (
	textPolicy    = bluemonday.StrictPolicy()
	amountPrinter = message.NewPrinter(language.English)
)

// FormatAmount renders an amount with thousands grouping and two decimals.
func FormatAmount(amount models.Money, currency string) string {
	formatted := amountPrinter.Sprint(number.Decimal(amount.InexactFloat64(), number.Scale(2)))
	if currency == "" {
		return formatted
	}
	return formatted + " " + strings.ToUpper(currency)
}

// SanitizeText drops any markup from customer or admin supplied text.
func SanitizeText(raw string) string {
	return strings.TrimSpace(textPolicy.Sanitize(raw))
}

type orderEmailView struct {
	Heading      string
	OrderNumber  string
	CustomerName string
	Items        []orderEmailLine
	Subtotal     string
	Shipping     string
	Discount     string
	HasDiscount  bool
	Final        string
	Method       string
	Status       string
	Recipient    string
	Address      string
	CardMessage  string
}

type orderEmailLine struct {
	Name     string
	Quantity int
	Total    string
}

var orderEmailTemplate = template.Must(template.New("order").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>{{.Heading}}</h2>
<p>Order <strong>#{{.OrderNumber}}</strong>{{if .CustomerName}} for {{.CustomerName}}{{end}}</p>
<table cellpadding="4">
{{range .Items}}<tr><td>{{.Name}}</td><td>x{{.Quantity}}</td><td align="right">{{.Total}}</td></tr>
{{end}}<tr><td colspan="2">Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
<tr><td colspan="2">Shipping</td><td align="right">{{.Shipping}}</td></tr>
{{if .HasDiscount}}<tr><td colspan="2">Discount</td><td align="right">-{{.Discount}}</td></tr>
{{end}}<tr><td colspan="2"><strong>Total</strong></td><td align="right"><strong>{{.Final}}</strong></td></tr>
</table>
<p>Payment: {{.Method}} ({{.Status}})</p>
{{if .Recipient}}<p>Deliver to: {{.Recipient}}<br>{{.Address}}</p>{{end}}
{{if .CardMessage}}<p>Card message: {{.CardMessage}}</p>{{end}}
</body></html>`))

// BuildOrderEmail renders subject and body for an order notification.
func BuildOrderEmail(order *models.Order, heading string) (string, string, error) {
	if order == nil {
		return "", "", ErrOrderNotFound
	}
	view := orderEmailView{
		Heading:     heading,
		OrderNumber: order.OrderNumber,
		Subtotal:    FormatAmount(order.TotalAmount, order.Currency),
		Shipping:    FormatAmount(order.ShippingCost, order.Currency),
		Discount:    FormatAmount(order.Discount, order.Currency),
		HasDiscount: order.Discount.IsPositive(),
		Final:       FormatAmount(order.FinalAmount, order.Currency),
		Method:      string(order.PaymentMethod),
		Status:      string(order.PaymentStatus),
	}
	if order.CustomerInfo != nil {
		view.CustomerName = SanitizeText(order.CustomerInfo.FullName())
	}
	if order.ShippingInfo != nil {
		view.Recipient = SanitizeText(order.ShippingInfo.RecipientName)
		view.Address = SanitizeText(formatShippingAddress(order.ShippingInfo))
		view.CardMessage = SanitizeText(order.ShippingInfo.CardMessage)
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderEmailLine{
			Name:     SanitizeText(item.ProductName),
			Quantity: item.Quantity,
			Total:    FormatAmount(item.TotalPrice, order.Currency),
		})
	}
	var buf bytes.Buffer
	if err := orderEmailTemplate.Execute(&buf, view); err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf("%s #%s", heading, order.OrderNumber)
	return subject, buf.String(), nil
}

func formatShippingAddress(info *models.ShippingInfo) string {
	if info == nil {
		return ""
	}
	if info.ShipToRecipient {
		return strings.TrimSpace(info.AddressLine)
	}
	parts := make([]string, 0, 5)
	for _, part := range []string{info.AddressLine, info.TambonName, info.AmphureName, info.ProvinceName, info.PostalCode} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}
