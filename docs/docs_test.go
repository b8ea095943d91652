package docs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	require.NoError(t, err)

	webhook := doc.Paths.Find("/webhook")
	require.NotNil(t, webhook)
	require.NotNil(t, webhook.Post)
	require.NotNil(t, webhook.Get)

	for _, code := range []int{200, 400, 401, 409, 429, 500} {
		assert.NotNil(t, webhook.Post.Responses.Status(code), "missing response %d", code)
	}

	assert.NotNil(t, doc.Paths.Find("/webhook/stats"))
	assert.Contains(t, doc.Components.Schemas, "WebhookResponse")
}
