package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/internal/pkg/config"
	"github.com/ManuelReschke/PayFox/internal/pkg/httpjson"
)

const syncPath = "/transactions/sync"

// Entry is a settled payment as the ledger records it.
type Entry struct {
	TransactionID string  `json:"transaction_id" validate:"required"`
	Reference     string  `json:"reference"`
	Provider      string  `json:"provider" validate:"required"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Currency      string  `json:"currency" validate:"required,len=3"`
	Status        string  `json:"status" validate:"required"`
}

// Result is the ledger's answer to a sync.
type Result struct {
	Success    bool   `json:"success"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Client syncs transactions to the accounting ledger.
type Client struct {
	http *httpjson.Client
}

// NewClient creates a ledger client from cfg.
func NewClient(cfg config.CollaboratorConfig) *Client {
	return &Client{http: httpjson.New("ledger", cfg.BaseURL, cfg.APIKey, cfg.Timeout)}
}

// Enabled reports whether a ledger endpoint is configured.
func (c *Client) Enabled() bool {
	return c.http.Enabled()
}

// SyncTransaction pushes entry to the ledger. A response with success=false
// is returned as an error so the job is retried.
func (c *Client) SyncTransaction(ctx context.Context, entry Entry) (*Result, error) {
	var res Result
	if err := c.http.Post(ctx, syncPath, entry, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = "ledger rejected the entry"
		}
		return &res, errors.New(res.Error)
	}
	log.Infof("[Ledger] Synced transaction %s (external id %s)", entry.TransactionID, res.ExternalID)
	return &res, nil
}

// String is used in job logs.
func (e Entry) String() string {
	return fmt.Sprintf("%s %s %.2f %s", e.TransactionID, e.Status, e.Amount, e.Currency)
}
