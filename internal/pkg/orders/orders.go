package orders

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/internal/pkg/config"
	"github.com/ManuelReschke/PayFox/internal/pkg/httpjson"
)

const paymentPath = "/orders/payment"

// PaymentUpdate tells the order service that the order behind Reference
// has been paid.
type PaymentUpdate struct {
	Reference     string  `json:"reference" validate:"required"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount" validate:"gte=0"`
}

// Result is the order service's answer.
type Result struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"order_number,omitempty"`
	OldStatus   string `json:"old_status,omitempty"`
	NewStatus   string `json:"new_status,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Client talks to the order service.
type Client struct {
	http *httpjson.Client
}

func NewClient(cfg config.CollaboratorConfig) *Client {
	return &Client{http: httpjson.New("orders", cfg.BaseURL, cfg.APIKey, cfg.Timeout)}
}

func (c *Client) Enabled() bool {
	return c.http.Enabled()
}

// MarkPaid reports a payment against an order reference.
func (c *Client) MarkPaid(ctx context.Context, update PaymentUpdate) (*Result, error) {
	var res Result
	if err := c.http.Post(ctx, paymentPath, update, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = "order service rejected the update"
		}
		return &res, errors.New(res.Error)
	}
	log.Infof("[Orders] Order %s moved %s -> %s by %s", res.OrderNumber, res.OldStatus, res.NewStatus, update.TransactionID)
	return &res, nil
}
