package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const defaultTimeout = 10 * time.Second

// ErrNotConfigured is returned when the collaborator has no base URL.
var ErrNotConfigured = errors.New("collaborator base URL is not configured")

var validate = validator.New()

// Client posts validated JSON documents to a collaborator API.
type Client struct {
	Name       string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New creates a client for the named collaborator.
func New(name, baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		Name:       name,
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:     strings.TrimSpace(apiKey),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a base URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.BaseURL != ""
}

// Post validates in, sends it to path and decodes the response into out.
// Non-2xx responses are errors.
func (c *Client) Post(ctx context.Context, path string, in, out interface{}) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%s request invalid: %w", c.Name, err)
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+strings.TrimLeft(path, "/"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.Name, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s request failed: status=%d body=%s", c.Name, resp.StatusCode, string(body))
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s response: %w", c.Name, err)
	}
	return nil
}
