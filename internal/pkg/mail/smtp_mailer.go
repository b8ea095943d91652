package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

// Receipt is a payment confirmation for an invoice.
type Receipt struct {
	InvoiceNumber    string
	CustomerID       string
	Email            string
	Amount           float64
	PaymentMethod    string
	Reference        string
	RemainingBalance float64
}

// Result of a sent receipt.
type Result struct {
	Success   bool
	MessageID string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends emails via SMTP
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string

	send sendFunc
}

// NewSMTPMailerFromEnv reads SMTP_* settings.
func NewSMTPMailerFromEnv() *SMTPMailer {
	m := &SMTPMailer{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "25"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		Sender:   env.GetEnv("SMTP_SENDER", ""),
		send:     smtp.SendMail,
	}
	if m.Sender == "" {
		m.Sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", m.Sender)
	}
	return m
}

// Enabled reports whether an SMTP host is configured.
func (m *SMTPMailer) Enabled() bool {
	return m != nil && m.Host != ""
}

// SendMail sends one HTML message and returns its Message-ID.
func (m *SMTPMailer) SendMail(to, subject, body string) (string, error) {
	if !m.Enabled() {
		return "", fmt.Errorf("SMTP_HOST is not configured")
	}

	var auth smtp.Auth
	if m.Username != "" && m.Password != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.Host)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMessage-ID: %s\r\n", m.Sender, to, subject, messageID) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := m.send(addr, auth, m.Sender, []string{to}, msg); err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
		return "", err
	}
	log.Infof("[Mail] Email sent to %s via %s", to, addr)
	return messageID, nil
}

// SendReceipt renders and sends a payment receipt.
func (m *SMTPMailer) SendReceipt(_ context.Context, r Receipt) (*Result, error) {
	if strings.TrimSpace(r.Email) == "" {
		return nil, fmt.Errorf("receipt for %s has no recipient", r.InvoiceNumber)
	}
	body, err := RenderReceipt(r)
	if err != nil {
		return nil, err
	}
	id, err := m.SendMail(r.Email, ReceiptSubject(r), body)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, MessageID: id}, nil
}

// ReceiptSubject is the mail subject of a receipt.
func ReceiptSubject(r Receipt) string {
	if r.RemainingBalance <= 0 {
		return fmt.Sprintf("Invoice %s paid in full", r.InvoiceNumber)
	}
	return fmt.Sprintf("Payment received for invoice %s", r.InvoiceNumber)
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<p>Thank you for your payment.</p>
<table>
<tr><td>Invoice</td><td>{{.InvoiceNumber}}</td></tr>
<tr><td>Amount paid</td><td>{{printf "%.2f" .Amount}}</td></tr>
{{if .PaymentMethod}}<tr><td>Payment method</td><td>{{.PaymentMethod}}</td></tr>
{{end}}{{if .Reference}}<tr><td>Reference</td><td>{{.Reference}}</td></tr>
{{end}}<tr><td>Outstanding balance</td><td>{{printf "%.2f" .RemainingBalance}}</td></tr>
</table>
`))

// RenderReceipt renders the plain receipt body.
func RenderReceipt(r Receipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}
