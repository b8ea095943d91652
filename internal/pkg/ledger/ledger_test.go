package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/internal/pkg/config"
	"github.com/ManuelReschke/PayFox/internal/pkg/httpjson"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.CollaboratorConfig{BaseURL: srv.URL, APIKey: "k-123", Timeout: time.Second})
}

func validEntry() Entry {
	return Entry{TransactionID: "T1", Reference: "ORD-1", Provider: "netcash", Amount: 100, Currency: "ZAR", Status: "completed"}
}

func TestSyncTransaction(t *testing.T) {
	var got Entry
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions/sync", r.URL.Path)
		assert.Equal(t, "Bearer k-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"external_id":"L-9"}`))
	})

	res, err := client.SyncTransaction(context.Background(), validEntry())
	require.NoError(t, err)
	assert.Equal(t, "L-9", res.ExternalID)
	assert.Equal(t, validEntry(), got)
}

func TestSyncTransactionFailures(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"error":"period closed"}`))
		})
		res, err := client.SyncTransaction(context.Background(), validEntry())
		require.Error(t, err)
		assert.Equal(t, "period closed", err.Error())
		assert.False(t, res.Success)
	})

	t.Run("server error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := client.SyncTransaction(context.Background(), validEntry())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=502")
	})

	t.Run("invalid entry never leaves", func(t *testing.T) {
		called := false
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			called = true
		})
		entry := validEntry()
		entry.Currency = "RAND"
		_, err := client.SyncTransaction(context.Background(), entry)
		require.Error(t, err)
		assert.False(t, called)
	})

	t.Run("not configured", func(t *testing.T) {
		client := NewClient(config.CollaboratorConfig{})
		assert.False(t, client.Enabled())
		_, err := client.SyncTransaction(context.Background(), validEntry())
		assert.ErrorIs(t, err, httpjson.ErrNotConfigured)
	})
}
