package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestMailer(captured *capturedMail, err error) *SMTPMailer {
	return &SMTPMailer{
		Host:   "smtp.test",
		Port:   "2525",
		Sender: "billing@payfox.test",
		send: func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			captured.addr = addr
			captured.from = from
			captured.to = to
			captured.msg = string(msg)
			return err
		},
	}
}

func TestSendReceipt(t *testing.T) {
	var got capturedMail
	m := newTestMailer(&got, nil)

	res, err := m.SendReceipt(context.Background(), Receipt{
		InvoiceNumber:    "INV-1001",
		Email:            "customer@example.com",
		Amount:           400,
		PaymentMethod:    "Card",
		Reference:        "INV-1001",
		RemainingBalance: 600,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, strings.HasSuffix(res.MessageID, "@smtp.test>"))

	assert.Equal(t, "smtp.test:2525", got.addr)
	assert.Equal(t, []string{"customer@example.com"}, got.to)
	assert.Contains(t, got.msg, "Subject: Payment received for invoice INV-1001")
	assert.Contains(t, got.msg, "Message-ID: "+res.MessageID)
	assert.Contains(t, got.msg, "400.00")
	assert.Contains(t, got.msg, "600.00")
}

func TestSendReceiptErrors(t *testing.T) {
	var got capturedMail
	m := newTestMailer(&got, errors.New("connection refused"))

	_, err := m.SendReceipt(context.Background(), Receipt{InvoiceNumber: "INV-1", Email: "a@b.c"})
	assert.EqualError(t, err, "connection refused")

	_, err = m.SendReceipt(context.Background(), Receipt{InvoiceNumber: "INV-1"})
	assert.Error(t, err)

	disabled := &SMTPMailer{}
	assert.False(t, disabled.Enabled())
	_, err = disabled.SendMail("a@b.c", "s", "b")
	assert.Error(t, err)
}

func TestRenderReceiptEscapesInput(t *testing.T) {
	body, err := RenderReceipt(Receipt{InvoiceNumber: "INV-<b>1</b>", Amount: 10, RemainingBalance: 0})
	require.NoError(t, err)
	assert.NotContains(t, body, "<b>1</b>")
	assert.Equal(t, "Invoice INV-9 paid in full", ReceiptSubject(Receipt{InvoiceNumber: "INV-9"}))
}
